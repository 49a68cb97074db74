package domain

import (
	"fmt"
	"sort"
)

// QuestionType discriminates the per-type payload rules below.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	FillInBlank    QuestionType = "fill_in_blank"
	Essay          QuestionType = "essay"
)

// Question is a tagged variant: Type decides which fields are allowed,
// enforced by Validate at the system boundary rather than downstream.
type Question struct {
	ID            string       `json:"id"`
	QuizID        string       `json:"quizId,omitempty"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"` // ordered
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Points        int          `json:"points"` // defaults to 1 if zero
	Order         int          `json:"order"`
}

// AutoGradable reports whether the grader may score this type without
// human review. Essays always go to the manual-grading queue.
func (t QuestionType) AutoGradable() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, FillInBlank:
		return true
	}
	return false
}

// Validate checks the per-type payload rules.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %q: %w: text is required", q.ID, ErrInvalidQuestion)
	}
	if q.Points < 0 {
		return fmt.Errorf("question %q: %w: points must not be negative", q.ID, ErrInvalidQuestion)
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %q: %w: multiple choice needs at least two options", q.ID, ErrInvalidQuestion)
		}
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				return nil
			}
		}
		return fmt.Errorf("question %q: %w: correct answer must be one of the options", q.ID, ErrInvalidQuestion)
	case TrueFalse:
		if len(q.Options) != 0 {
			return fmt.Errorf("question %q: %w: true/false takes no options", q.ID, ErrInvalidQuestion)
		}
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return fmt.Errorf("question %q: %w: correct answer must be \"true\" or \"false\"", q.ID, ErrInvalidQuestion)
		}
	case ShortAnswer, FillInBlank:
		if len(q.Options) != 0 {
			return fmt.Errorf("question %q: %w: %s takes no options", q.ID, ErrInvalidQuestion, q.Type)
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("question %q: %w: correct answer is required", q.ID, ErrInvalidQuestion)
		}
	case Essay:
		if len(q.Options) != 0 || q.CorrectAnswer != "" {
			return fmt.Errorf("question %q: %w: essay takes neither options nor a correct answer", q.ID, ErrInvalidQuestion)
		}
	default:
		return fmt.Errorf("question %q: %w: unknown type %q", q.ID, ErrInvalidQuestion, q.Type)
	}
	return nil
}

// PointsOrDefault returns the configured points, defaulting to 1.
func (q Question) PointsOrDefault() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Validate checks the quiz and each of its questions.
func (z Quiz) Validate() error {
	if z.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidQuiz)
	}
	if z.TeacherID == "" {
		return fmt.Errorf("%w: teacher id is required", ErrInvalidQuiz)
	}
	if z.TimeLimit < 0 {
		return fmt.Errorf("%w: time limit must not be negative", ErrInvalidQuiz)
	}
	for _, q := range z.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// OrderedQuestions returns the questions sorted by their Order field so
// callers never depend on storage or submission order.
func (z Quiz) OrderedQuestions() []Question {
	out := append([]Question(nil), z.Questions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// TotalPoints sums the point value of every question.
func (z Quiz) TotalPoints() int {
	total := 0
	for _, q := range z.Questions {
		total += q.PointsOrDefault()
	}
	return total
}
