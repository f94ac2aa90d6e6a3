// Package quiz scores multiple-choice quiz attempts. Pure computation,
// no storage: the caller brings the questions and the student's
// answers and gets back a marked result.
package quiz

import (
	"math"
	"strings"
)

// Question is one quiz item with its model answer and point value.
type Question struct {
	ID      string
	Correct string
	Points  int
}

// QuestionResult is the marking detail for one question.
type QuestionResult struct {
	QuestionID string
	Chosen     string
	Correct    string
	IsCorrect  bool
	Points     int
}

// Result is a marked quiz attempt.
type Result struct {
	Earned int
	Total  int
	// Percentage is earned over total, 0-100, two decimals. Zero when
	// the quiz carries no points at all.
	Percentage float64
	// CorrectCount and TotalCount tally questions, not points.
	CorrectCount int
	TotalCount   int
	// Questions holds one detail row per question, in question order.
	Questions []QuestionResult
}

// Score marks answers against questions. An unanswered question is
// wrong; an answer to an unknown question id is ignored. Comparison
// trims surrounding whitespace but is otherwise exact.
func Score(questions []Question, answers map[string]string) Result {
	res := Result{
		TotalCount: len(questions),
		Questions:  make([]QuestionResult, 0, len(questions)),
	}

	for _, q := range questions {
		res.Total += q.Points
		given, ok := answers[q.ID]
		correct := ok && strings.TrimSpace(given) == strings.TrimSpace(q.Correct)
		if correct {
			res.Earned += q.Points
			res.CorrectCount++
		}
		res.Questions = append(res.Questions, QuestionResult{
			QuestionID: q.ID,
			Chosen:     given,
			Correct:    q.Correct,
			IsCorrect:  correct,
			Points:     q.Points,
		})
	}

	if res.Total > 0 {
		res.Percentage = math.Round(float64(res.Earned)/float64(res.Total)*100*100) / 100
	}
	return res
}
