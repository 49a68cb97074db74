package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"quizmentor/internal/domain"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:a"`

	ID          string     `bun:"id,pk"`
	QuizID      string     `bun:"quiz_id"`
	StudentID   string     `bun:"student_id"`
	Status      string     `bun:"status"`
	Score       int        `bun:"score"`
	TotalPoints int        `bun:"total_points"`
	TimeSpent   int        `bun:"time_spent"`
	StartedAt   time.Time  `bun:"started_at"`
	CompletedAt *time.Time `bun:"completed_at"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:quiz_answers,alias:ans"`

	ID             string `bun:"id,pk"`
	AttemptID      string `bun:"attempt_id"`
	QuestionID     string `bun:"question_id"`
	Answer         string `bun:"answer"`
	IsCorrect      bool   `bun:"is_correct"`
	PointsEarned   int    `bun:"points_earned"`
	PointsPossible int    `bun:"points_possible"`
	PendingManual  bool   `bun:"pending_manual"`
	Ord            int    `bun:"ord"`
}

type manualGradeRow struct {
	bun.BaseModel `bun:"table:manual_grades,alias:g"`

	AnswerID      string    `bun:"answer_id,pk"`
	TeacherID     string    `bun:"teacher_id"`
	PointsAwarded int       `bun:"points_awarded"`
	Feedback      string    `bun:"feedback"`
	GradedAt      time.Time `bun:"graded_at"`
}

// AttemptStore persists attempts, answers, and manual grades in Postgres.
// Finalization and manual grading each run as one transaction.
type AttemptStore struct {
	db    *bun.DB
	now   func() time.Time
	newID func() string
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db, now: time.Now, newID: uuid.NewString}
}

func (s *AttemptStore) FindOrCreate(ctx context.Context, quizID, studentID string, totalPoints int) (domain.Attempt, error) {
	var found attemptRow
	err := s.db.NewSelect().Model(&found).
		Where("quiz_id = ?", quizID).
		Where("student_id = ?", studentID).
		Where("status = ?", string(domain.AttemptInProgress)).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return toAttempt(found), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, fmt.Errorf("find attempt: %w", err)
	}

	row := attemptRow{
		ID:          s.newID(),
		QuizID:      quizID,
		StudentID:   studentID,
		Status:      string(domain.AttemptInProgress),
		TotalPoints: totalPoints,
		StartedAt:   s.now(),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	return toAttempt(row), nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("a.id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, nil, fmt.Errorf("get attempt: %w", err)
	}

	var answers []answerRow
	if err := s.db.NewSelect().Model(&answers).
		Where("attempt_id = ?", attemptID).
		Order("ord ASC").
		Scan(ctx); err != nil {
		return domain.Attempt{}, nil, fmt.Errorf("get answers: %w", err)
	}
	return toAttempt(row), toAnswers(answers), nil
}

func (s *AttemptStore) Finalize(ctx context.Context, attemptID string, graded domain.GradedResult, timeSpent int) (domain.Attempt, []domain.Answer, error) {
	var row attemptRow
	var rows []answerRow

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&row).Where("a.id = ?", attemptID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("lock attempt: %w", err)
		}
		if row.Status == string(domain.AttemptCompleted) {
			return domain.ErrAttemptCompleted
		}

		rows = make([]answerRow, 0, len(graded.Verdicts))
		for i, v := range graded.Verdicts {
			rows = append(rows, answerRow{
				ID:             s.newID(),
				AttemptID:      attemptID,
				QuestionID:     v.QuestionID,
				Answer:         v.Answer,
				IsCorrect:      v.IsCorrect,
				PointsEarned:   v.PointsEarned,
				PointsPossible: v.PointsPossible,
				PendingManual:  v.PendingManual,
				Ord:            i,
			})
		}
		if len(rows) > 0 {
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert answers: %w", err)
			}
		}

		completedAt := s.now()
		row.Status = string(domain.AttemptCompleted)
		row.Score = graded.Score
		row.TotalPoints = graded.TotalPoints
		row.TimeSpent = timeSpent
		row.CompletedAt = &completedAt
		if _, err := tx.NewUpdate().Model(&row).
			Column("status", "score", "total_points", "time_spent", "completed_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	return toAttempt(row), toAnswers(rows), nil
}

func (s *AttemptStore) PendingGrades(ctx context.Context, quizID string) ([]domain.Answer, error) {
	var rows []answerRow
	err := s.db.NewSelect().Model(&rows).
		Join("JOIN quiz_attempts AS a ON a.id = ans.attempt_id").
		Where("a.quiz_id = ?", quizID).
		Where("ans.pending_manual").
		Where("NOT EXISTS (SELECT 1 FROM manual_grades g WHERE g.answer_id = ans.id)").
		Order("ans.attempt_id ASC", "ans.ord ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending grades: %w", err)
	}
	return toAnswers(rows), nil
}

func (s *AttemptStore) UpsertManualGrade(ctx context.Context, grade domain.ManualGrade) (domain.ManualGrade, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var answer answerRow
		err := tx.NewSelect().Model(&answer).Where("ans.id = ?", grade.AnswerID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAnswerNotFound
		}
		if err != nil {
			return fmt.Errorf("lock answer: %w", err)
		}
		if grade.PointsAwarded > answer.PointsPossible {
			return domain.ErrPointsExceeded
		}

		row := manualGradeRow{
			AnswerID:      grade.AnswerID,
			TeacherID:     grade.TeacherID,
			PointsAwarded: grade.PointsAwarded,
			Feedback:      grade.Feedback,
			GradedAt:      grade.GradedAt,
		}
		if _, err := tx.NewInsert().Model(&row).
			On("CONFLICT (answer_id) DO UPDATE").
			Set("teacher_id = EXCLUDED.teacher_id").
			Set("points_awarded = EXCLUDED.points_awarded").
			Set("feedback = EXCLUDED.feedback").
			Set("graded_at = EXCLUDED.graded_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert grade: %w", err)
		}

		answer.PointsEarned = grade.PointsAwarded
		answer.IsCorrect = grade.PointsAwarded > 0
		answer.PendingManual = false
		if _, err := tx.NewUpdate().Model(&answer).
			Column("points_earned", "is_correct", "pending_manual").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update answer: %w", err)
		}

		// Re-sum the attempt so its aggregate score tracks manual grading.
		if _, err := tx.NewUpdate().Model((*attemptRow)(nil)).
			TableExpr("(SELECT COALESCE(SUM(points_earned), 0) AS total FROM quiz_answers WHERE attempt_id = ?) AS sums", answer.AttemptID).
			Set("score = LEAST(sums.total, a.total_points)").
			Where("a.id = ?", answer.AttemptID).
			Exec(ctx); err != nil {
			return fmt.Errorf("resync attempt score: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ManualGrade{}, err
	}
	return grade, nil
}

func toAttempt(row attemptRow) domain.Attempt {
	return domain.Attempt{
		ID:          row.ID,
		QuizID:      row.QuizID,
		StudentID:   row.StudentID,
		Status:      domain.AttemptStatus(row.Status),
		Score:       row.Score,
		TotalPoints: row.TotalPoints,
		TimeSpent:   row.TimeSpent,
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}
}

func toAnswers(rows []answerRow) []domain.Answer {
	answers := make([]domain.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, domain.Answer{
			ID:             row.ID,
			AttemptID:      row.AttemptID,
			QuestionID:     row.QuestionID,
			Value:          row.Answer,
			IsCorrect:      row.IsCorrect,
			PointsEarned:   row.PointsEarned,
			PointsPossible: row.PointsPossible,
			PendingManual:  row.PendingManual,
		})
	}
	return answers
}
