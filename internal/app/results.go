package app

import (
	"fmt"
	"math"

	"quizmentor/internal/domain"
)

// Summarize builds the presentation-ready view of a graded attempt.
// A zero-point quiz reports 0%, not a division error.
func Summarize(score, totalPoints, timeSpent int, breakdown []domain.Verdict) domain.ResultSummary {
	return domain.ResultSummary{
		Score:       score,
		TotalPoints: totalPoints,
		Percentage:  Percentage(score, totalPoints),
		TimeSpent:   FormatTimeSpent(timeSpent),
		Breakdown:   breakdown,
	}
}

// Percentage returns round(100 * score / total), with total == 0 as 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

// FormatTimeSpent renders seconds as MM:SS.
func FormatTimeSpent(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// verdictsFromAnswers rebuilds a breakdown from persisted answer rows,
// used when presenting an attempt fetched from the store.
func verdictsFromAnswers(answers []domain.Answer) []domain.Verdict {
	verdicts := make([]domain.Verdict, 0, len(answers))
	for _, a := range answers {
		verdicts = append(verdicts, domain.Verdict{
			QuestionID:     a.QuestionID,
			Answer:         a.Value,
			IsCorrect:      a.IsCorrect,
			PointsEarned:   a.PointsEarned,
			PointsPossible: a.PointsPossible,
			PendingManual:  a.PendingManual,
		})
	}
	return verdicts
}
