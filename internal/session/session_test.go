package session

import (
	"errors"
	"testing"
	"time"

	"github.com/nitzanh/examgen/internal/model"
)

func threeQuestionExam(durationMinutes int) model.Exam {
	return model.Exam{
		ID:       "exam-1",
		Title:    "Sample",
		Duration: durationMinutes,
		Status:   model.StatusPublished,
		Questions: []model.Question{
			{ID: "q1", Type: model.SingleChoice, QuestionText: "pick one", Points: 30, Options: []model.AnswerOption{
				{Text: "A", IsCorrect: true}, {Text: "B"},
			}},
			{ID: "q2", Type: model.MultipleChoice, QuestionText: "pick many", Points: 30, Options: []model.AnswerOption{
				{Text: "X", IsCorrect: true}, {Text: "Y", IsCorrect: true}, {Text: "Z"},
			}},
			{ID: "q3", Type: model.OpenEnded, QuestionText: "explain", Points: 40},
		},
	}
}

type capture struct {
	called  int
	answers map[string]model.StudentAnswer
	start   time.Time
	status  model.CompletionStatus
}

func (c *capture) finish(answers map[string]model.StudentAnswer, start time.Time, status model.CompletionStatus) {
	c.called++
	c.answers = answers
	c.start = start
	c.status = status
}

func TestAnswersBeforeStartRejected(t *testing.T) {
	c := New(threeQuestionExam(30), nil)
	if err := c.SelectOption("A"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
}

func TestNavigationIsBounded(t *testing.T) {
	c := New(threeQuestionExam(30), nil)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	c.Previous()
	if _, i := c.Current(); i != 0 {
		t.Errorf("index = %d, want 0", i)
	}
	c.Next()
	c.Next()
	c.Next()
	c.Next()
	if q, i := c.Current(); i != 2 || q.ID != "q3" {
		t.Errorf("index = %d question = %s, want 2/q3", i, q.ID)
	}
	c.Previous()
	if _, i := c.Current(); i != 1 {
		t.Errorf("index = %d, want 1", i)
	}
}

func TestAnswerCapturePerType(t *testing.T) {
	c := New(threeQuestionExam(30), nil)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// q1 single choice: second pick replaces the first.
	if err := c.SelectOption("B"); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if err := c.SelectOption("A"); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if err := c.ToggleOption("A"); !errors.Is(err, ErrWrongType) {
		t.Errorf("toggle on single choice: err = %v", err)
	}

	// q2 multiple choice: toggles keep click order.
	c.Next()
	for _, opt := range []string{"Z", "X", "Z", "Y"} {
		if err := c.ToggleOption(opt); err != nil {
			t.Fatalf("ToggleOption(%s): %v", opt, err)
		}
	}

	// q3 open ended: later text replaces earlier text.
	c.Next()
	if err := c.SetText("first draft"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if err := c.SetText("final answer"); err != nil {
		t.Fatalf("SetText: %v", err)
	}

	got := c.Answers()
	if got["q1"].Text != "A" {
		t.Errorf("q1 = %q, want A", got["q1"].Text)
	}
	if sel := got["q2"].Selection; len(sel) != 2 || sel[0] != "X" || sel[1] != "Y" {
		t.Errorf("q2 = %v, want [X Y]", sel)
	}
	if got["q3"].Text != "final answer" {
		t.Errorf("q3 = %q", got["q3"].Text)
	}
}

func TestSubmitNeedsConfirmation(t *testing.T) {
	var rec capture
	c := New(threeQuestionExam(30), rec.finish)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.ConfirmFinish(); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("confirm without request: err = %v", err)
	}

	if err := c.RequestFinish(model.CompletionCompleted); err != nil {
		t.Fatalf("RequestFinish: %v", err)
	}
	c.CancelFinish()
	if err := c.ConfirmFinish(); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("confirm after cancel: err = %v", err)
	}
	if rec.called != 0 {
		t.Fatal("finish fired without confirmation")
	}

	if err := c.RequestFinish(model.CompletionCompleted); err != nil {
		t.Fatalf("RequestFinish: %v", err)
	}
	if err := c.ConfirmFinish(); err != nil {
		t.Fatalf("ConfirmFinish: %v", err)
	}
	if rec.called != 1 || rec.status != model.CompletionCompleted {
		t.Fatalf("finish = %+v", rec)
	}
	if c.State() != Finished {
		t.Errorf("state = %v, want Finished", c.State())
	}
	if err := c.SetText("too late"); !errors.Is(err, ErrFinished) {
		t.Errorf("answer after finish: err = %v", err)
	}
}

func TestQuitPreservesAnswers(t *testing.T) {
	var rec capture
	c := New(threeQuestionExam(30), rec.finish)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SelectOption("A"); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}

	if err := c.RequestFinish(model.CompletionQuit); err != nil {
		t.Fatalf("RequestFinish: %v", err)
	}
	if err := c.ConfirmFinish(); err != nil {
		t.Fatalf("ConfirmFinish: %v", err)
	}
	if rec.status != model.CompletionQuit {
		t.Errorf("status = %s", rec.status)
	}
	if rec.answers["q1"].Text != "A" {
		t.Errorf("answers = %v", rec.answers)
	}
}

func TestTimeoutAutoSubmits(t *testing.T) {
	var rec capture
	c := New(threeQuestionExam(1), rec.finish)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SelectOption("A"); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}

	for i := 0; i < 59; i++ {
		c.Tick()
	}
	if c.State() != InProgress {
		t.Fatal("finished early")
	}
	c.Tick()

	if rec.called != 1 || rec.status != model.CompletionTimedOut {
		t.Fatalf("finish = %+v", rec)
	}
	if rec.answers["q1"].Text != "A" {
		t.Errorf("partial answers lost: %v", rec.answers)
	}
	// Further ticks are no-ops after the clock has fired.
	c.Tick()
	if rec.called != 1 {
		t.Errorf("finish fired twice")
	}
}

func TestAbortNeverDelivers(t *testing.T) {
	var rec capture
	c := New(threeQuestionExam(1), rec.finish)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SelectOption("A"); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}

	c.Abort()
	if c.State() != Finished {
		t.Fatalf("state = %v, want Finished", c.State())
	}

	// The abandoned clock running down must not produce a submission.
	for i := 0; i < 61; i++ {
		c.Tick()
	}
	if rec.called != 0 {
		t.Fatalf("aborted attempt delivered a submission: %+v", rec)
	}
	if err := c.ConfirmFinish(); !errors.Is(err, ErrFinished) {
		t.Errorf("confirm after abort: err = %v", err)
	}
}

func TestRequestFinishRejectsTimedOut(t *testing.T) {
	c := New(threeQuestionExam(30), nil)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.RequestFinish(model.CompletionTimedOut); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("err = %v, want ErrBadStatus", err)
	}
}
