// Package scoring computes attempt scores. Closed questions are scored
// deterministically in-process; open-ended questions are delegated to an
// OpenGrader, one question at a time, in exam order.
package scoring

import (
	"context"
	"log/slog"
	"math"

	appI18n "github.com/nitzanh/examgen/internal/i18n"
	"github.com/nitzanh/examgen/internal/model"
)

// OpenGrader grades a single open-ended answer. Implementations may
// call an external service; a returned error is recovered by the
// engine with a zero-score fallback.
type OpenGrader interface {
	GradeOpenAnswer(ctx context.Context, question model.Question, answer string) (model.GradedAnswer, error)
}

// Result is the outcome of scoring one attempt.
type Result struct {
	// Score is the rounded sum of all per-question scores.
	Score int
	// TotalPoints is the maximum achievable, i.e. the sum of all
	// question point values.
	TotalPoints int
	// GradedAnswers holds per-question AI grading detail, keyed by
	// question ID. Only open-ended questions appear here.
	GradedAnswers map[string]model.GradedAnswer
}

// ScoreClosed returns the points earned on a single closed question.
// Open-ended questions always return 0 here.
func ScoreClosed(q model.Question, answer model.StudentAnswer) float64 {
	switch q.Type {
	case model.SingleChoice:
		if answer.Text == "" {
			return 0
		}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				if answer.Text == opt.Text {
					return float64(q.Points)
				}
				return 0
			}
		}
		return 0

	case model.MultipleChoice:
		correct := q.CorrectOptionTexts()
		numCorrect := len(correct)
		if numCorrect == 0 {
			return 0
		}
		// All-or-nothing guard: selecting more answers than there are
		// correct options scores zero.
		if len(answer.Selection) > numCorrect {
			return 0
		}
		correctSet := make(map[string]bool, numCorrect)
		for _, text := range correct {
			correctSet[text] = true
		}
		selected := 0
		for _, text := range answer.Selection {
			if correctSet[text] {
				selected++
			}
		}
		return float64(selected) / float64(numCorrect) * float64(q.Points)
	}
	return 0
}

// Score grades a full answer set against an exam's question list.
//
// Closed questions are scored first; open-ended questions are then
// graded sequentially in question order. A grader failure on one
// question is recovered with a zero score and an error feedback entry,
// and grading proceeds with the remaining questions.
func Score(ctx context.Context, questions []model.Question, answers map[string]model.StudentAnswer, grader OpenGrader) Result {
	var total float64
	graded := make(map[string]model.GradedAnswer)

	for _, q := range questions {
		if q.Type != model.OpenEnded {
			total += ScoreClosed(q, answers[q.ID])
		}
	}

	for _, q := range questions {
		if q.Type != model.OpenEnded {
			continue
		}
		answer := answers[q.ID]
		if answer.IsEmpty() {
			graded[q.ID] = model.GradedAnswer{Score: 0, Feedback: appI18n.T(ctx, "GradingNoAnswer")}
			continue
		}

		result, err := grader.GradeOpenAnswer(ctx, q, answer.Text)
		if err != nil {
			slog.Error("open answer grading failed", "question_id", q.ID, "error", err)
			graded[q.ID] = model.GradedAnswer{Score: 0, Feedback: appI18n.T(ctx, "GradingError")}
			continue
		}
		result.Score = clamp(result.Score, 0, float64(q.Points))
		graded[q.ID] = result
		total += result.Score
	}

	return Result{
		Score:         int(math.Round(total)),
		TotalPoints:   model.TotalPoints(questions),
		GradedAnswers: graded,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
