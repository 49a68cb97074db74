package app

import (
	"strings"

	"quizmentor/internal/domain"
)

// Grade scores a submission against a quiz's questions. Answers are keyed
// by question id; a missing key counts as an unanswered (wrong) question.
//
// Policy: multiple choice and true/false grade by exact string equality,
// short answer and fill-in-blank by normalized (trimmed, case-folded)
// equality, and essays are never auto-graded — their verdicts carry zero
// points and PendingManual until a teacher grades them. Points are
// all-or-nothing; there is no partial credit.
func Grade(quiz domain.Quiz, answers map[string]string) domain.GradedResult {
	questions := quiz.OrderedQuestions()
	result := domain.GradedResult{
		Verdicts: make([]domain.Verdict, 0, len(questions)),
	}

	for _, question := range questions {
		points := question.PointsOrDefault()
		result.TotalPoints += points

		verdict := domain.Verdict{
			QuestionID:     question.ID,
			Answer:         answers[question.ID],
			PointsPossible: points,
		}
		switch {
		case !question.Type.AutoGradable():
			verdict.PendingManual = true
		case matches(question, verdict.Answer):
			verdict.IsCorrect = true
			verdict.PointsEarned = points
			result.Score += points
		}
		result.Verdicts = append(result.Verdicts, verdict)
	}
	return result
}

func matches(question domain.Question, answer string) bool {
	if answer == "" {
		return false
	}
	switch question.Type {
	case domain.ShortAnswer, domain.FillInBlank:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.CorrectAnswer))
	default:
		return answer == question.CorrectAnswer
	}
}
