package app

import (
	"context"
	"fmt"
	"time"

	"quizmentor/internal/domain"
)

// GradeStore persists manual grades and exposes the pending queue.
type GradeStore interface {
	// PendingGrades lists the quiz's answers that await manual grading.
	PendingGrades(ctx context.Context, quizID string) ([]domain.Answer, error)
	// UpsertManualGrade stores at most one grade per answer (re-grading
	// overwrites), propagates the points into the answer row, and re-sums
	// the parent attempt's score.
	UpsertManualGrade(ctx context.Context, grade domain.ManualGrade) (domain.ManualGrade, error)
}

// GradingService is the teacher-facing workflow for questions the
// auto-grader cannot score.
type GradingService struct {
	grades GradeStore
	now    func() time.Time
}

func NewGradingService(grades GradeStore) *GradingService {
	return &GradingService{grades: grades, now: time.Now}
}

// Pending returns the quiz's answers that have no manual grade yet.
func (g *GradingService) Pending(ctx context.Context, quizID string) ([]domain.Answer, error) {
	if quizID == "" {
		return nil, fmt.Errorf("%w: quizId", domain.ErrMissingField)
	}
	return g.grades.PendingGrades(ctx, quizID)
}

// Grade upserts a manual grade for one answer.
func (g *GradingService) Grade(ctx context.Context, answerID, teacherID string, pointsAwarded int, feedback string) (domain.ManualGrade, error) {
	if answerID == "" {
		return domain.ManualGrade{}, fmt.Errorf("%w: answerId", domain.ErrMissingField)
	}
	if teacherID == "" {
		return domain.ManualGrade{}, fmt.Errorf("%w: teacherId", domain.ErrMissingField)
	}
	if pointsAwarded < 0 {
		return domain.ManualGrade{}, fmt.Errorf("%w: pointsAwarded must not be negative", domain.ErrInvalidGrade)
	}
	return g.grades.UpsertManualGrade(ctx, domain.ManualGrade{
		AnswerID:      answerID,
		TeacherID:     teacherID,
		PointsAwarded: pointsAwarded,
		Feedback:      feedback,
		GradedAt:      g.now(),
	})
}
