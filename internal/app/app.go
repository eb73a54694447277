// Package app is the application controller. It owns the three
// persisted collections (exams, students, submissions) and funnels
// every state transition through a named operation: exam lifecycle,
// roster management, login, and attempt recording.
//
// All mutations follow the same discipline: compute the complete new
// collection value, write it through the persistence facade once, and
// only then commit it in memory. A failed write leaves both the store
// and the in-memory state untouched.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nitzanh/examgen/internal/genai"
	"github.com/nitzanh/examgen/internal/model"
	"github.com/nitzanh/examgen/internal/store"
)

// ContentGenerator is the AI capability the controller depends on.
// *genai.Client satisfies it; tests substitute fakes.
type ContentGenerator interface {
	GenerateExam(ctx context.Context, req genai.GenerateRequest) (*genai.GeneratedExam, error)
	RegenerateExam(ctx context.Context, exam model.Exam) (*genai.GeneratedExam, error)
	GradeOpenAnswer(ctx context.Context, question model.Question, answer string) (model.GradedAnswer, error)
}

// Config holds the controller's fixed settings.
type Config struct {
	// TeacherUsername and TeacherPassword are the single teacher
	// credential pair. A placeholder for a real credential store.
	TeacherUsername string
	TeacherPassword string
	// TeacherName is the display name attached to teacher sessions.
	TeacherName string
}

// App holds all application state.
type App struct {
	mu    sync.Mutex
	store *store.Store
	ai    ContentGenerator
	cfg   Config

	exams       []model.Exam
	students    []model.Student
	submissions []model.Submission
}

// New creates the controller and loads the persisted collections.
// Loading is best effort: a corrupt collection is logged and replaced
// with an empty one without affecting the others.
func New(s *store.Store, ai ContentGenerator, cfg Config) *App {
	a := &App{store: s, ai: ai, cfg: cfg}

	var err error
	if a.exams, err = s.LoadExams(); err != nil {
		slog.Error("failed to load exams, starting empty", "error", err)
		a.exams = nil
	}
	if a.students, err = s.LoadStudents(); err != nil {
		slog.Error("failed to load students, starting empty", "error", err)
		a.students = nil
	}
	if a.submissions, err = s.LoadSubmissions(); err != nil {
		slog.Error("failed to load submissions, starting empty", "error", err)
		a.submissions = nil
	}

	slog.Info("application state loaded",
		"exams", len(a.exams),
		"students", len(a.students),
		"submissions", len(a.submissions),
	)
	return a
}

// Exams returns a copy of the exam collection, newest first as stored.
func (a *App) Exams() []model.Exam {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Exam, len(a.exams))
	copy(out, a.exams)
	return out
}

// ExamByID returns the exam with the given ID.
func (a *App) ExamByID(id string) (model.Exam, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.examByIDLocked(id)
}

func (a *App) examByIDLocked(id string) (model.Exam, bool) {
	for _, e := range a.exams {
		if e.ID == id {
			return e, true
		}
	}
	return model.Exam{}, false
}

// Students returns a copy of the roster.
func (a *App) Students() []model.Student {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Student, len(a.students))
	copy(out, a.students)
	return out
}

// StudentByID returns the roster entry with the given ID.
func (a *App) StudentByID(id string) (model.Student, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.studentByIDLocked(id)
}

func (a *App) studentByIDLocked(id string) (model.Student, bool) {
	for _, s := range a.students {
		if s.ID == id {
			return s, true
		}
	}
	return model.Student{}, false
}

// Submissions returns a copy of the submission collection.
func (a *App) Submissions() []model.Submission {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Submission, len(a.submissions))
	copy(out, a.submissions)
	return out
}
