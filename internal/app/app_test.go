package app

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/nitzanh/examgen/internal/genai"
	appI18n "github.com/nitzanh/examgen/internal/i18n"
	"github.com/nitzanh/examgen/internal/model"
	"github.com/nitzanh/examgen/internal/store"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeAI struct {
	generated *genai.GeneratedExam
	genErr    error
	graded    map[string]model.GradedAnswer
}

func (f *fakeAI) GenerateExam(_ context.Context, _ genai.GenerateRequest) (*genai.GeneratedExam, error) {
	return f.generated, f.genErr
}

func (f *fakeAI) RegenerateExam(_ context.Context, _ model.Exam) (*genai.GeneratedExam, error) {
	return f.generated, f.genErr
}

func (f *fakeAI) GradeOpenAnswer(_ context.Context, q model.Question, _ string) (model.GradedAnswer, error) {
	if g, ok := f.graded[q.ID]; ok {
		return g, nil
	}
	return model.GradedAnswer{}, errors.New("no grade configured")
}

func newTestApp(t *testing.T, ai ContentGenerator) *App {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if ai == nil {
		ai = &fakeAI{}
	}
	return New(s, ai, Config{TeacherUsername: "teacher", TeacherPassword: "secret", TeacherName: "Teacher"})
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Type: model.SingleChoice, QuestionText: "?", Points: 50, Options: []model.AnswerOption{
			{Text: "A", IsCorrect: true}, {Text: "B"},
		}},
		{ID: "q2", Type: model.OpenEnded, QuestionText: "?", Points: 50},
	}
}

func TestCreateExam(t *testing.T) {
	ai := &fakeAI{generated: &genai.GeneratedExam{Title: "History", Questions: sampleQuestions()}}
	a := newTestApp(t, ai)

	exam, err := a.CreateExam(context.Background(), CreateExamInput{
		Files:    []genai.Attachment{{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("x")}},
		Duration: 45,
	})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if exam.ID == "" || exam.Status != model.StatusDraft {
		t.Fatalf("unexpected exam: %+v", exam)
	}
	if exam.Duration != 45 {
		t.Errorf("duration = %d, want 45", exam.Duration)
	}
	if got := a.Exams(); len(got) != 1 || got[0].Title != "History" {
		t.Fatalf("exams = %+v", got)
	}
}

func TestCreateExamReplacesInPlace(t *testing.T) {
	ai := &fakeAI{generated: &genai.GeneratedExam{Title: "First", Questions: sampleQuestions()}}
	a := newTestApp(t, ai)

	orig, err := a.CreateExam(context.Background(), CreateExamInput{
		Files: []genai.Attachment{{Name: "a.txt"}}, Duration: 30,
	})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if err := a.AddStudent(model.Student{ID: "123456789", Name: "Dana", Password: "pw"}); err != nil {
		t.Fatalf("AddStudent: %v", err)
	}
	if _, err := a.PublishExam(orig.ID); err != nil {
		t.Fatalf("PublishExam: %v", err)
	}

	ai.generated = &genai.GeneratedExam{Title: "Second", Questions: sampleQuestions()}
	replaced, err := a.CreateExam(context.Background(), CreateExamInput{
		Files: []genai.Attachment{{Name: "b.txt"}}, Duration: 60, ExamID: orig.ID,
	})
	if err != nil {
		t.Fatalf("CreateExam replace: %v", err)
	}
	if replaced.ID != orig.ID {
		t.Errorf("id changed: %s != %s", replaced.ID, orig.ID)
	}
	if !replaced.CreationDate.Equal(orig.CreationDate) {
		t.Error("creation date not preserved")
	}
	if replaced.Status != model.StatusDraft {
		t.Errorf("status = %s, want draft", replaced.Status)
	}
	if len(replaced.AccessCodes) != 0 {
		t.Error("access codes not cleared")
	}
	if got := a.Exams(); len(got) != 1 {
		t.Fatalf("expected single exam, got %d", len(got))
	}
}

func TestCreateExamFailureLeavesStateUntouched(t *testing.T) {
	ai := &fakeAI{genErr: errors.New("model offline")}
	a := newTestApp(t, ai)

	if _, err := a.CreateExam(context.Background(), CreateExamInput{
		Files: []genai.Attachment{{Name: "a.txt"}},
	}); err == nil {
		t.Fatal("expected error")
	}
	if got := a.Exams(); len(got) != 0 {
		t.Fatalf("exams mutated on failure: %+v", got)
	}
}

func TestUpdateExamRequiresHundredPoints(t *testing.T) {
	ai := &fakeAI{generated: &genai.GeneratedExam{Title: "T", Questions: sampleQuestions()}}
	a := newTestApp(t, ai)
	exam, _ := a.CreateExam(context.Background(), CreateExamInput{Files: []genai.Attachment{{Name: "a"}}})

	exam.Questions[0].Points = 40
	if err := a.UpdateExam(exam); !errors.Is(err, ErrPointsSum) {
		t.Fatalf("err = %v, want ErrPointsSum", err)
	}

	exam.Questions[0].Points = 50
	exam.Title = "Edited"
	if err := a.UpdateExam(exam); err != nil {
		t.Fatalf("UpdateExam: %v", err)
	}
	got, _ := a.ExamByID(exam.ID)
	if got.Title != "Edited" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestPublishExam(t *testing.T) {
	ai := &fakeAI{generated: &genai.GeneratedExam{Title: "T", Questions: sampleQuestions()}}
	a := newTestApp(t, ai)
	exam, _ := a.CreateExam(context.Background(), CreateExamInput{Files: []genai.Attachment{{Name: "a"}}})

	if _, err := a.PublishExam(exam.ID); !errors.Is(err, ErrEmptyRoster) {
		t.Fatalf("err = %v, want ErrEmptyRoster", err)
	}

	for _, st := range []model.Student{
		{ID: "12345678", Name: "Avi", Password: "a"},
		{ID: "123456789", Name: "Dana", Password: "b"},
	} {
		if err := a.AddStudent(st); err != nil {
			t.Fatalf("AddStudent: %v", err)
		}
	}

	pub, err := a.PublishExam(exam.ID)
	if err != nil {
		t.Fatalf("PublishExam: %v", err)
	}
	if pub.Status != model.StatusPublished {
		t.Errorf("status = %s", pub.Status)
	}
	codePat := regexp.MustCompile(`^\d{6}$`)
	if len(pub.AccessCodes) != 2 {
		t.Fatalf("codes = %v", pub.AccessCodes)
	}
	for id, code := range pub.AccessCodes {
		if !codePat.MatchString(code) {
			t.Errorf("code for %s = %q, want six digits", id, code)
		}
	}
}

func TestStudentLogin(t *testing.T) {
	ai := &fakeAI{generated: &genai.GeneratedExam{Title: "T", Questions: sampleQuestions()}}
	a := newTestApp(t, ai)
	exam, _ := a.CreateExam(context.Background(), CreateExamInput{Files: []genai.Attachment{{Name: "a"}}})
	if err := a.AddStudent(model.Student{ID: "123456789", Name: "Dana", Password: "pw"}); err != nil {
		t.Fatalf("AddStudent: %v", err)
	}
	pub, err := a.PublishExam(exam.ID)
	if err != nil {
		t.Fatalf("PublishExam: %v", err)
	}

	if _, err := a.StudentLogin("999999999", "pw", ""); !errors.Is(err, ErrUnknownStudent) {
		t.Errorf("unknown id: err = %v", err)
	}
	if _, err := a.StudentLogin("123456789", "nope", ""); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password: err = %v", err)
	}

	res, err := a.StudentLogin("123456789", "pw", pub.AccessCodes["123456789"])
	if err != nil {
		t.Fatalf("StudentLogin: %v", err)
	}
	if res.Exam == nil || res.Exam.ID != exam.ID {
		t.Fatalf("code did not resolve exam: %+v", res)
	}
	if res.CodeMismatch {
		t.Error("unexpected mismatch flag")
	}

	res, err = a.StudentLogin("123456789", "pw", "000001")
	if err != nil {
		t.Fatalf("StudentLogin with bad code: %v", err)
	}
	if res.Exam != nil || !res.CodeMismatch {
		t.Fatalf("bad code should log in with mismatch flag: %+v", res)
	}
}

func TestTeacherLogin(t *testing.T) {
	a := newTestApp(t, nil)

	if _, err := a.TeacherLogin("teacher", "wrong"); !errors.Is(err, ErrTeacherAuth) {
		t.Errorf("err = %v, want ErrTeacherAuth", err)
	}
	u, err := a.TeacherLogin("TEACHER", "secret")
	if err != nil {
		t.Fatalf("TeacherLogin: %v", err)
	}
	if u.Role != model.UserRoleTeacher {
		t.Errorf("role = %s", u.Role)
	}
}

func TestAddStudentValidation(t *testing.T) {
	a := newTestApp(t, nil)

	if err := a.AddStudent(model.Student{ID: "1234567", Name: "Short"}); !errors.Is(err, ErrInvalidStudentID) {
		t.Errorf("short id: err = %v", err)
	}
	if err := a.AddStudent(model.Student{ID: "123456789", Name: "Dana", Password: "pw"}); err != nil {
		t.Fatalf("AddStudent: %v", err)
	}
	if err := a.AddStudent(model.Student{ID: "123456789", Name: "Clone"}); !errors.Is(err, ErrStudentExists) {
		t.Errorf("duplicate: err = %v", err)
	}
}

func TestUpdateStudentKeepsPasswordWhenEmpty(t *testing.T) {
	a := newTestApp(t, nil)
	if err := a.AddStudent(model.Student{ID: "123456789", Name: "Dana", Password: "pw"}); err != nil {
		t.Fatalf("AddStudent: %v", err)
	}

	if err := a.UpdateStudent(model.Student{ID: "123456789", Name: "Dana Levi", Class: "10b"}); err != nil {
		t.Fatalf("UpdateStudent: %v", err)
	}
	st, _ := a.StudentByID("123456789")
	if st.Password != "pw" {
		t.Errorf("password = %q, want kept", st.Password)
	}
	if st.Name != "Dana Levi" || st.Class != "10b" {
		t.Errorf("fields not updated: %+v", st)
	}
}

func TestRecordAttempt(t *testing.T) {
	ai := &fakeAI{
		generated: &genai.GeneratedExam{Title: "T", Questions: sampleQuestions()},
		graded:    map[string]model.GradedAnswer{"q2": {Score: 30, Feedback: "partial"}},
	}
	a := newTestApp(t, ai)
	exam, _ := a.CreateExam(context.Background(), CreateExamInput{Files: []genai.Attachment{{Name: "a"}}})

	answers := map[string]model.StudentAnswer{
		"q1": {Text: "A"},
		"q2": {Text: "essay"},
	}
	start := time.Now().Add(-10 * time.Minute)
	user := model.User{ID: "123456789", Name: "Dana", Role: model.UserRoleStudent}

	sub, err := a.RecordAttempt(context.Background(), exam, user, answers, start, model.CompletionCompleted)
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if sub.Score != 80 {
		t.Errorf("score = %d, want 80", sub.Score)
	}
	if sub.TotalQuestions != 100 {
		t.Errorf("total = %d, want 100", sub.TotalQuestions)
	}
	if got := a.Submissions(); len(got) != 1 {
		t.Fatalf("submissions = %d, want 1", len(got))
	}
}

func TestRecordAttemptTestDriveNotPersisted(t *testing.T) {
	ai := &fakeAI{generated: &genai.GeneratedExam{Title: "T", Questions: sampleQuestions()}}
	a := newTestApp(t, ai)
	exam, _ := a.CreateExam(context.Background(), CreateExamInput{Files: []genai.Attachment{{Name: "a"}}})

	user := model.User{ID: model.TestDriveID, Name: "Test Drive", Role: model.UserRoleStudent}
	sub, err := a.RecordAttempt(context.Background(), exam, user,
		map[string]model.StudentAnswer{"q1": {Text: "A"}}, time.Now(), model.CompletionCompleted)
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if sub.Score != 50 {
		t.Errorf("score = %d, want 50", sub.Score)
	}
	if got := a.Submissions(); len(got) != 0 {
		t.Fatalf("test drive attempt persisted: %+v", got)
	}
}

func TestStudentPortalAndResults(t *testing.T) {
	ai := &fakeAI{generated: &genai.GeneratedExam{Title: "T", Questions: sampleQuestions()}}
	a := newTestApp(t, ai)
	exam, _ := a.CreateExam(context.Background(), CreateExamInput{Files: []genai.Attachment{{Name: "a"}}})
	_ = a.AddStudent(model.Student{ID: "123456789", Name: "Dana", Password: "pw"})
	if _, err := a.PublishExam(exam.ID); err != nil {
		t.Fatalf("PublishExam: %v", err)
	}

	user := model.User{ID: "123456789", Name: "Dana", Role: model.UserRoleStudent}
	if _, err := a.RecordAttempt(context.Background(), exam, user,
		map[string]model.StudentAnswer{"q1": {Text: "A"}}, time.Now(), model.CompletionQuit); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	exams, subs := a.StudentPortal("123456789")
	if len(exams) != 1 || exams[0].AccessCode == "" {
		t.Fatalf("portal exams = %+v", exams)
	}
	if len(subs) != 1 || subs[0].CompletionStatus != model.CompletionQuit {
		t.Fatalf("portal submissions = %+v", subs)
	}

	rows := a.ResultsOverview()
	if len(rows) != 1 || rows[0].ExamTitle != "T" || rows[0].StudentName != "Dana" {
		t.Fatalf("overview = %+v", rows)
	}

	// A deleted student leaves the submission unresolvable; the row is hidden.
	if err := a.DeleteStudent("123456789"); err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}
	if rows := a.ResultsOverview(); len(rows) != 0 {
		t.Fatalf("overview after delete = %+v", rows)
	}
}
