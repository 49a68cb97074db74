package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizmentor/internal/domain"
)

// AttemptStore keeps attempts, answers, and manual grades in process
// memory. It implements both app.AttemptStore and app.GradeStore.
type AttemptStore struct {
	mu         sync.RWMutex
	attempts   map[string]domain.Attempt
	answers    map[string][]domain.Answer // keyed by attempt id
	grades     map[string]domain.ManualGrade
	inProgress map[string]string // quiz|student -> attempt id
	byAnswer   map[string]answerRef
	now        func() time.Time
	newID      func() string
}

type answerRef struct {
	attemptID string
	index     int
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts:   make(map[string]domain.Attempt),
		answers:    make(map[string][]domain.Answer),
		grades:     make(map[string]domain.ManualGrade),
		inProgress: make(map[string]string),
		byAnswer:   make(map[string]answerRef),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func attemptKey(quizID, studentID string) string {
	return quizID + "\x00" + studentID
}

func (s *AttemptStore) FindOrCreate(_ context.Context, quizID, studentID string, totalPoints int) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(quizID, studentID)
	if id, ok := s.inProgress[key]; ok {
		return s.attempts[id], nil
	}

	attempt := domain.Attempt{
		ID:          s.newID(),
		QuizID:      quizID,
		StudentID:   studentID,
		Status:      domain.AttemptInProgress,
		TotalPoints: totalPoints,
		StartedAt:   s.now(),
	}
	s.attempts[attempt.ID] = attempt
	s.inProgress[key] = attempt.ID
	return attempt, nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.Attempt, []domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, nil, domain.ErrAttemptNotFound
	}
	return attempt, append([]domain.Answer(nil), s.answers[attemptID]...), nil
}

func (s *AttemptStore) Finalize(_ context.Context, attemptID string, graded domain.GradedResult, timeSpent int) (domain.Attempt, []domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, nil, domain.ErrAttemptNotFound
	}
	if attempt.Status == domain.AttemptCompleted {
		return domain.Attempt{}, nil, domain.ErrAttemptCompleted
	}

	rows := make([]domain.Answer, 0, len(graded.Verdicts))
	for _, v := range graded.Verdicts {
		row := domain.Answer{
			ID:             s.newID(),
			AttemptID:      attemptID,
			QuestionID:     v.QuestionID,
			Value:          v.Answer,
			IsCorrect:      v.IsCorrect,
			PointsEarned:   v.PointsEarned,
			PointsPossible: v.PointsPossible,
			PendingManual:  v.PendingManual,
		}
		s.byAnswer[row.ID] = answerRef{attemptID: attemptID, index: len(rows)}
		rows = append(rows, row)
	}
	s.answers[attemptID] = rows

	completedAt := s.now()
	attempt.Status = domain.AttemptCompleted
	attempt.Score = graded.Score
	attempt.TotalPoints = graded.TotalPoints
	attempt.TimeSpent = timeSpent
	attempt.CompletedAt = &completedAt
	s.attempts[attemptID] = attempt
	delete(s.inProgress, attemptKey(attempt.QuizID, attempt.StudentID))

	return attempt, append([]domain.Answer(nil), rows...), nil
}

func (s *AttemptStore) PendingGrades(_ context.Context, quizID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []domain.Answer
	for attemptID, rows := range s.answers {
		if s.attempts[attemptID].QuizID != quizID {
			continue
		}
		for _, row := range rows {
			if _, graded := s.grades[row.ID]; row.PendingManual && !graded {
				pending = append(pending, row)
			}
		}
	}
	return pending, nil
}

func (s *AttemptStore) UpsertManualGrade(_ context.Context, grade domain.ManualGrade) (domain.ManualGrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.byAnswer[grade.AnswerID]
	if !ok {
		return domain.ManualGrade{}, domain.ErrAnswerNotFound
	}
	row := &s.answers[ref.attemptID][ref.index]
	if grade.PointsAwarded > row.PointsPossible {
		return domain.ManualGrade{}, domain.ErrPointsExceeded
	}

	s.grades[grade.AnswerID] = grade
	row.PointsEarned = grade.PointsAwarded
	row.IsCorrect = grade.PointsAwarded > 0
	row.PendingManual = false

	// Re-sum the parent attempt so score tracks manual grading.
	attempt := s.attempts[ref.attemptID]
	score := 0
	for _, a := range s.answers[ref.attemptID] {
		score += a.PointsEarned
	}
	if score > attempt.TotalPoints {
		score = attempt.TotalPoints
	}
	attempt.Score = score
	s.attempts[ref.attemptID] = attempt

	return grade, nil
}
