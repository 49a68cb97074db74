package domain

import "time"

// AttemptStatus tracks where an attempt is in its lifecycle.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// Quiz is a teacher-authored collection of ordered questions.
type Quiz struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	TeacherID      string     `json:"teacherId"`
	SubjectID      string     `json:"subjectId,omitempty"`
	OrganizationID string     `json:"organizationId,omitempty"`
	TimeLimit      int        `json:"timeLimit"` // minutes; 0 means untimed
	IsPublished    bool       `json:"isPublished"`
	Status         string     `json:"status,omitempty"`
	Questions      []Question `json:"questions"`
}

// Attempt is one student's single pass through a quiz.
type Attempt struct {
	ID          string        `json:"id"`
	QuizID      string        `json:"quizId"`
	StudentID   string        `json:"studentId"`
	Status      AttemptStatus `json:"status"`
	Score       int           `json:"score"`
	TotalPoints int           `json:"totalPoints"`
	TimeSpent   int           `json:"timeSpent"` // seconds
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// Answer is the graded record of one question within a completed attempt.
// Answers are keyed by question id, never by position.
type Answer struct {
	ID             string `json:"id"`
	AttemptID      string `json:"attemptId"`
	QuestionID     string `json:"questionId"`
	Value          string `json:"answer"`
	IsCorrect      bool   `json:"isCorrect"`
	PointsEarned   int    `json:"pointsEarned"`
	PointsPossible int    `json:"pointsPossible"`
	PendingManual  bool   `json:"pendingManual"`
}

// ManualGrade is a teacher-supplied score for an answer the auto-grader
// cannot evaluate. At most one per answer; re-grading overwrites.
type ManualGrade struct {
	AnswerID      string    `json:"answerId"`
	TeacherID     string    `json:"teacherId"`
	PointsAwarded int       `json:"pointsAwarded"`
	Feedback      string    `json:"feedback,omitempty"`
	GradedAt      time.Time `json:"gradedAt"`
}

// Verdict is the grader's judgment of a single question.
type Verdict struct {
	QuestionID     string `json:"questionId"`
	Answer         string `json:"answer"`
	IsCorrect      bool   `json:"isCorrect"`
	PointsEarned   int    `json:"pointsEarned"`
	PointsPossible int    `json:"pointsPossible"`
	PendingManual  bool   `json:"pendingManual"`
}

// GradedResult aggregates the verdicts for one submission.
type GradedResult struct {
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
	Verdicts    []Verdict `json:"verdicts"`
}

// ResultSummary is the presentation-ready view of a graded attempt.
type ResultSummary struct {
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
	Percentage  int       `json:"percentage"`
	TimeSpent   string    `json:"timeSpent"` // MM:SS
	Breakdown   []Verdict `json:"breakdown"`
}
