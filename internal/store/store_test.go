package store

import (
	"testing"
	"time"

	"github.com/nitzanh/examgen/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCollectionsStartEmpty(t *testing.T) {
	s := newTestStore(t)

	exams, err := s.LoadExams()
	if err != nil {
		t.Fatalf("LoadExams: %v", err)
	}
	if len(exams) != 0 {
		t.Errorf("expected no exams, got %d", len(exams))
	}

	students, err := s.LoadStudents()
	if err != nil {
		t.Fatalf("LoadStudents: %v", err)
	}
	if len(students) != 0 {
		t.Errorf("expected no students, got %d", len(students))
	}

	submissions, err := s.LoadSubmissions()
	if err != nil {
		t.Fatalf("LoadSubmissions: %v", err)
	}
	if len(submissions) != 0 {
		t.Errorf("expected no submissions, got %d", len(submissions))
	}
}

func TestExamRoundTrip(t *testing.T) {
	s := newTestStore(t)

	exams := []model.Exam{
		{
			ID:       "exam-1",
			Title:    "History",
			Duration: 45,
			Status:   model.StatusPublished,
			Questions: []model.Question{
				{ID: "q1", Type: model.SingleChoice, QuestionText: "Who?", Points: 100,
					Options: []model.AnswerOption{{Text: "A", IsCorrect: true}, {Text: "B"}}},
			},
			CreationDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			AccessCodes:  map[string]string{"12345678": "654321"},
		},
		{ID: "exam-2", Title: "Biology", Duration: 30, Status: model.StatusDraft},
	}

	if err := s.SaveExams(exams); err != nil {
		t.Fatalf("SaveExams: %v", err)
	}
	got, err := s.LoadExams()
	if err != nil {
		t.Fatalf("LoadExams: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(got))
	}
	if got[0].AccessCodes["12345678"] != "654321" {
		t.Errorf("access codes did not round-trip: %v", got[0].AccessCodes)
	}
	if got[0].Questions[0].Options[0].Text != "A" {
		t.Error("question options did not round-trip")
	}
	if got[1].Status != model.StatusDraft {
		t.Errorf("expected draft status, got %q", got[1].Status)
	}
}

func TestWholeCollectionRewrite(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveStudents([]model.Student{
		{ID: "12345678", Name: "Dana"},
		{ID: "87654321", Name: "Noa"},
	}); err != nil {
		t.Fatalf("SaveStudents: %v", err)
	}

	// Re-saving with one student removed must fully replace the
	// collection, not merge.
	if err := s.SaveStudents([]model.Student{{ID: "12345678", Name: "Dana"}}); err != nil {
		t.Fatalf("SaveStudents: %v", err)
	}

	students, err := s.LoadStudents()
	if err != nil {
		t.Fatalf("LoadStudents: %v", err)
	}
	if len(students) != 1 || students[0].ID != "12345678" {
		t.Errorf("expected only Dana to remain, got %v", students)
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	subs := []model.Submission{{
		ExamID:    "exam-1",
		StudentID: "12345678",
		Answers: map[string]model.StudentAnswer{
			"q1": {Text: "Paris"},
			"q2": {Selection: []string{"A", "B"}},
		},
		Score:            73,
		TotalQuestions:   100,
		CompletionStatus: model.CompletionTimedOut,
		GradedAnswers:    map[string]model.GradedAnswer{"q3": {Score: 12.5, Feedback: "ok"}},
	}}

	if err := s.SaveSubmissions(subs); err != nil {
		t.Fatalf("SaveSubmissions: %v", err)
	}
	got, err := s.LoadSubmissions()
	if err != nil {
		t.Fatalf("LoadSubmissions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(got))
	}
	sub := got[0]
	if sub.TotalQuestions != 100 {
		t.Errorf("TotalQuestions = %d, want 100", sub.TotalQuestions)
	}
	if len(sub.Answers["q2"].Selection) != 2 {
		t.Error("multi-choice selection did not round-trip")
	}
	if sub.GradedAnswers["q3"].Score != 12.5 {
		t.Error("graded answers did not round-trip")
	}
	if sub.CompletionStatus != model.CompletionTimedOut {
		t.Errorf("CompletionStatus = %q, want %q", sub.CompletionStatus, model.CompletionTimedOut)
	}
}

func TestCorruptCollectionFailsInIsolation(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveStudents([]model.Student{{ID: "12345678", Name: "Dana"}}); err != nil {
		t.Fatalf("SaveStudents: %v", err)
	}
	// Corrupt the exams collection behind the facade's back.
	if _, err := s.db.Exec(
		`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)`,
		CollectionExams, "{not json", time.Now(),
	); err != nil {
		t.Fatalf("corrupt collection: %v", err)
	}

	if _, err := s.LoadExams(); err == nil {
		t.Error("expected error loading corrupt collection")
	}

	// Other collections are unaffected.
	students, err := s.LoadStudents()
	if err != nil {
		t.Fatalf("LoadStudents after corruption: %v", err)
	}
	if len(students) != 1 {
		t.Errorf("expected 1 student, got %d", len(students))
	}
}
