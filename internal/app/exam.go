package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/nitzanh/examgen/internal/genai"
	"github.com/nitzanh/examgen/internal/model"
)

// CreateExamInput describes a generation request from the authoring UI.
type CreateExamInput struct {
	Files             []genai.Attachment
	NumSingleChoice   int
	NumMultipleChoice int
	NumOpenEnded      int
	// Duration is the time limit in minutes for attempts.
	Duration int
	// ExamID, when set, replaces the content of an existing exam
	// instead of creating a new one.
	ExamID string
}

// CreateExam generates an exam from the uploaded source files and
// stores it as a draft. When in.ExamID names an existing exam its
// content is replaced in place: the creation date is preserved, the
// status returns to draft, and any access codes are cleared. A
// generation failure leaves the collection untouched.
func (a *App) CreateExam(ctx context.Context, in CreateExamInput) (model.Exam, error) {
	gen, err := a.ai.GenerateExam(ctx, genai.GenerateRequest{
		Files:             in.Files,
		NumSingleChoice:   in.NumSingleChoice,
		NumMultipleChoice: in.NumMultipleChoice,
		NumOpenEnded:      in.NumOpenEnded,
	})
	if err != nil {
		return model.Exam{}, fmt.Errorf("generating exam: %w", err)
	}

	names := make([]string, len(in.Files))
	for i, f := range in.Files {
		names[i] = f.Name
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	exam := model.Exam{
		ID:              in.ExamID,
		Title:           gen.Title,
		SourceFileNames: names,
		Duration:        in.Duration,
		Questions:       gen.Questions,
		Status:          model.StatusDraft,
		CreationDate:    time.Now(),
	}

	next := make([]model.Exam, len(a.exams))
	copy(next, a.exams)

	if exam.ID != "" {
		replaced := false
		for i, e := range next {
			if e.ID == exam.ID {
				exam.CreationDate = e.CreationDate
				next[i] = exam
				replaced = true
				break
			}
		}
		if !replaced {
			return model.Exam{}, ErrExamNotFound
		}
	} else {
		exam.ID = "exam-" + uuid.NewString()
		next = append([]model.Exam{exam}, next...)
	}

	if err := a.store.SaveExams(next); err != nil {
		return model.Exam{}, fmt.Errorf("saving exams: %w", err)
	}
	a.exams = next
	slog.Info("exam created", "exam_id", exam.ID, "title", exam.Title, "questions", len(exam.Questions))
	return exam, nil
}

// UpdateExam replaces a stored exam with an edited version. The edit
// is rejected unless the question points sum to exactly 100.
func (a *App) UpdateExam(exam model.Exam) error {
	if model.TotalPoints(exam.Questions) != 100 {
		return ErrPointsSum
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]model.Exam, len(a.exams))
	copy(next, a.exams)
	found := false
	for i, e := range next {
		if e.ID == exam.ID {
			next[i] = exam
			found = true
			break
		}
	}
	if !found {
		return ErrExamNotFound
	}

	if err := a.store.SaveExams(next); err != nil {
		return fmt.Errorf("saving exams: %w", err)
	}
	a.exams = next
	return nil
}

// PublishExam moves a draft to published, minting one access code per
// roster student. Publishing an empty roster is rejected so that the
// published exam is reachable by at least one student.
func (a *App) PublishExam(examID string) (model.Exam, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.students) == 0 {
		return model.Exam{}, ErrEmptyRoster
	}

	next := make([]model.Exam, len(a.exams))
	copy(next, a.exams)
	idx := -1
	for i, e := range next {
		if e.ID == examID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Exam{}, ErrExamNotFound
	}

	codes := make(map[string]string, len(a.students))
	for _, s := range a.students {
		codes[s.ID] = newAccessCode()
	}
	next[idx].Status = model.StatusPublished
	next[idx].AccessCodes = codes

	if err := a.store.SaveExams(next); err != nil {
		return model.Exam{}, fmt.Errorf("saving exams: %w", err)
	}
	a.exams = next
	return next[idx], nil
}

// DeleteExam removes an exam in either status. Submissions referencing
// it are kept; views resolve the dangling reference as "not found".
func (a *App) DeleteExam(examID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]model.Exam, 0, len(a.exams))
	found := false
	for _, e := range a.exams {
		if e.ID == examID {
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return ErrExamNotFound
	}

	if err := a.store.SaveExams(next); err != nil {
		return fmt.Errorf("saving exams: %w", err)
	}
	a.exams = next
	return nil
}

// RegenerateExam produces a fresh set of questions for an existing
// exam, keeping its title and structural counts. The result is not
// persisted: the editor applies it and saves through UpdateExam, so a
// discarded regeneration costs nothing.
func (a *App) RegenerateExam(ctx context.Context, examID string) (model.Exam, error) {
	exam, ok := a.ExamByID(examID)
	if !ok {
		return model.Exam{}, ErrExamNotFound
	}

	gen, err := a.ai.RegenerateExam(ctx, exam)
	if err != nil {
		return model.Exam{}, fmt.Errorf("regenerating exam: %w", err)
	}

	exam.Questions = gen.Questions
	exam.Status = model.StatusDraft
	exam.AccessCodes = nil
	return exam, nil
}

// newAccessCode returns a random six digit code. Codes are not checked
// for uniqueness; lookups always pair a code with a student ID, so a
// collision between students is harmless.
func newAccessCode() string {
	return fmt.Sprintf("%d", 100000+rand.Intn(900000))
}
