package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nitzanh/examgen/internal/model"
	"github.com/nitzanh/examgen/internal/scoring"
)

// RecordAttempt scores a finished attempt and appends the submission.
// Closed questions are scored deterministically; open-ended answers go
// through the AI grader, whose per-question failures are absorbed by
// the scorer as zero-score feedback.
//
// Attempts by the test-drive identity are scored and returned but
// never persisted, so teachers can walk through a published exam
// without polluting the results.
func (a *App) RecordAttempt(ctx context.Context, exam model.Exam, user model.User, answers map[string]model.StudentAnswer, startTime time.Time, status model.CompletionStatus) (model.Submission, error) {
	result := scoring.Score(ctx, exam.Questions, answers, a.ai)

	sub := model.Submission{
		ExamID:           exam.ID,
		StudentID:        user.ID,
		Answers:          answers,
		Score:            result.Score,
		TotalQuestions:   result.TotalPoints,
		SubmittedAt:      time.Now(),
		StartTime:        startTime,
		CompletionStatus: status,
		GradedAnswers:    result.GradedAnswers,
	}

	if user.IsTestDrive() {
		slog.Info("test-drive attempt discarded", "exam_id", exam.ID, "score", sub.Score)
		return sub, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]model.Submission, len(a.submissions), len(a.submissions)+1)
	copy(next, a.submissions)
	next = append(next, sub)

	if err := a.store.SaveSubmissions(next); err != nil {
		return model.Submission{}, fmt.Errorf("saving submissions: %w", err)
	}
	a.submissions = next

	slog.Info("attempt recorded",
		"exam_id", exam.ID,
		"student_id", user.ID,
		"score", sub.Score,
		"status", status,
	)
	return sub, nil
}
