package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizmentor/internal/app"
	"quizmentor/internal/domain"
	"quizmentor/internal/infra/memory"
)

func essayQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-essay": {
			ID:        "quiz-essay",
			Title:     "Mostly prose",
			TeacherID: "t1",
			Questions: []domain.Question{
				{ID: "e1", Type: domain.MultipleChoice, Options: []string{"A", "B"}, CorrectAnswer: "A", Points: 5, Order: 0},
				{ID: "e2", Type: domain.Essay, Points: 10, Order: 1},
			},
		},
	}
}

func submitEssayAttempt(t *testing.T, attempts *memory.AttemptStore) (domain.Attempt, []domain.Answer) {
	t.Helper()
	ctx := context.Background()
	quizzes := memory.NewQuizRepository(memory.NewQuizStore(essayQuiz()), 5*time.Minute)
	service := app.NewAttemptService(quizzes, attempts, memory.NewDraftStore(), memory.NewSessionStore(), time.Millisecond)

	_, attempt, err := service.Start(ctx, "quiz-essay", "s1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	final, rows, _, err := service.SubmitAnswers(ctx, attempt.ID, map[string]string{
		"e1": "A",
		"e2": "Long-form thoughts on the matter.",
	}, 45)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return final, rows
}

func TestPendingListsUngradedEssayAnswers(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	grading := app.NewGradingService(attempts)

	final, _ := submitEssayAttempt(t, attempts)
	if final.Score != 5 {
		t.Fatalf("expected only auto-gradable points before manual grading, got %d", final.Score)
	}

	pending, err := grading.Pending(ctx, "quiz-essay")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending answer, got %d", len(pending))
	}
	if pending[0].QuestionID != "e2" || !pending[0].PendingManual {
		t.Fatalf("unexpected pending row: %+v", pending[0])
	}

	if _, err := grading.Pending(ctx, ""); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected missing quizId error, got %v", err)
	}
}

func TestManualGradeUpdatesAttemptScore(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	grading := app.NewGradingService(attempts)

	final, _ := submitEssayAttempt(t, attempts)
	pending, err := grading.Pending(ctx, "quiz-essay")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	answerID := pending[0].ID

	grade, err := grading.Grade(ctx, answerID, "t1", 8, "solid argument")
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if grade.PointsAwarded != 8 || grade.GradedAt.IsZero() {
		t.Fatalf("unexpected grade: %+v", grade)
	}

	attempt, answers, err := attempts.Get(ctx, final.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.Score != 13 {
		t.Fatalf("expected re-summed score 13, got %d", attempt.Score)
	}
	for _, a := range answers {
		if a.ID == answerID {
			if a.PointsEarned != 8 || !a.IsCorrect || a.PendingManual {
				t.Fatalf("answer row not updated: %+v", a)
			}
		}
	}

	// The graded answer leaves the pending queue.
	pending, err = grading.Pending(ctx, "quiz-essay")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue after grading, got %d", len(pending))
	}
}

func TestRegradeOverwritesPreviousGrade(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	grading := app.NewGradingService(attempts)

	final, _ := submitEssayAttempt(t, attempts)
	pending, err := grading.Pending(ctx, "quiz-essay")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	answerID := pending[0].ID

	if _, err := grading.Grade(ctx, answerID, "t1", 8, "first pass"); err != nil {
		t.Fatalf("grade: %v", err)
	}
	regrade, err := grading.Grade(ctx, answerID, "t2", 3, "on reflection")
	if err != nil {
		t.Fatalf("regrade: %v", err)
	}
	if regrade.TeacherID != "t2" || regrade.PointsAwarded != 3 {
		t.Fatalf("unexpected regrade: %+v", regrade)
	}

	attempt, _, err := attempts.Get(ctx, final.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.Score != 8 {
		t.Fatalf("expected score 5+3 after regrade, got %d", attempt.Score)
	}
}

func TestGradeValidation(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	grading := app.NewGradingService(attempts)

	if _, err := grading.Grade(ctx, "", "t1", 5, ""); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected missing answerId, got %v", err)
	}
	if _, err := grading.Grade(ctx, "a1", "", 5, ""); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected missing teacherId, got %v", err)
	}
	if _, err := grading.Grade(ctx, "a1", "t1", -1, ""); !errors.Is(err, domain.ErrInvalidGrade) {
		t.Fatalf("expected invalid grade, got %v", err)
	}
	if _, err := grading.Grade(ctx, "unknown", "t1", 5, ""); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("expected answer not found, got %v", err)
	}

	_, _ = submitEssayAttempt(t, attempts)
	pending, err := grading.Pending(ctx, "quiz-essay")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if _, err := grading.Grade(ctx, pending[0].ID, "t1", 11, ""); !errors.Is(err, domain.ErrPointsExceeded) {
		t.Fatalf("expected points exceeded, got %v", err)
	}
}
