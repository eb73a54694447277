// Package session drives a single exam attempt: the countdown clock,
// question navigation, answer capture, and the hand-off of the
// finished attempt to whoever records it.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/nitzanh/examgen/internal/model"
)

// State is the attempt lifecycle position.
type State int

const (
	NotStarted State = iota
	InProgress
	Finished
)

var (
	ErrNotStarted     = errors.New("attempt not started")
	ErrAlreadyStarted = errors.New("attempt already started")
	ErrFinished       = errors.New("attempt already finished")
	ErrWrongType      = errors.New("answer does not match question type")
	ErrBadStatus      = errors.New("finish status must be completed or quit")
	ErrNothingPending = errors.New("no finish pending confirmation")
)

// defaultDurationMinutes applies when an exam carries no time limit.
const defaultDurationMinutes = 30

// FinishFunc receives the completed attempt exactly once, on submit,
// quit, or timeout.
type FinishFunc func(answers map[string]model.StudentAnswer, startTime time.Time, status model.CompletionStatus)

// Controller holds the live state of one attempt. All methods are safe
// for concurrent use.
type Controller struct {
	mu       sync.Mutex
	exam     model.Exam
	onFinish FinishFunc

	state     State
	startTime time.Time
	remaining int
	index     int
	answers   map[string]model.StudentAnswer
	// pending holds the completion status armed by RequestFinish and
	// awaiting confirmation; empty when nothing is pending.
	pending model.CompletionStatus
	done    chan struct{}
}

// New prepares a controller for one attempt at the given exam.
func New(exam model.Exam, onFinish FinishFunc) *Controller {
	return &Controller{
		exam:     exam,
		onFinish: onFinish,
		answers:  make(map[string]model.StudentAnswer),
	}
}

// Start records the attempt start time, arms the countdown at the
// exam's full duration, and begins ticking once per second.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case InProgress:
		return ErrAlreadyStarted
	case Finished:
		return ErrFinished
	}

	minutes := c.exam.Duration
	if minutes <= 0 {
		minutes = defaultDurationMinutes
	}
	c.state = InProgress
	c.startTime = time.Now()
	c.remaining = minutes * 60
	c.index = 0
	c.done = make(chan struct{})
	go c.runClock(c.done)
	return nil
}

func (c *Controller) runClock(done chan struct{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			c.Tick()
		}
	}
}

// Tick advances the countdown by one second. When the clock reaches
// zero the attempt is submitted as timed out with whatever answers
// have been captured, no confirmation step.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.state != InProgress {
		c.mu.Unlock()
		return
	}
	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return
	}
	deliver := c.finishLocked(model.CompletionTimedOut)
	c.mu.Unlock()
	deliver()
}

// Remaining reports the seconds left on the clock.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Current returns the question in view and its index.
func (c *Controller) Current() (model.Question, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index >= len(c.exam.Questions) {
		return model.Question{}, c.index
	}
	return c.exam.Questions[c.index], c.index
}

// Next moves to the following question. Moving past the last question
// stays on the last question; answers are kept across navigation.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == InProgress && c.index < len(c.exam.Questions)-1 {
		c.index++
	}
}

// Previous moves back one question; bounded at the first.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == InProgress && c.index > 0 {
		c.index--
	}
}

// SetText replaces the free-text answer for the current question.
func (c *Controller) SetText(text string) error {
	return c.withCurrent(func(q model.Question) error {
		if q.Type != model.OpenEnded {
			return ErrWrongType
		}
		c.answers[q.ID] = model.StudentAnswer{Text: text}
		return nil
	})
}

// SelectOption sets the single-choice answer for the current question,
// replacing any earlier pick. Single-choice answers are stored as the
// option text itself.
func (c *Controller) SelectOption(optionText string) error {
	return c.withCurrent(func(q model.Question) error {
		if q.Type != model.SingleChoice {
			return ErrWrongType
		}
		c.answers[q.ID] = model.StudentAnswer{Text: optionText}
		return nil
	})
}

// ToggleOption adds or removes a pick on the current multiple-choice
// question. New picks append, so the selection keeps click order.
func (c *Controller) ToggleOption(optionText string) error {
	return c.withCurrent(func(q model.Question) error {
		if q.Type != model.MultipleChoice {
			return ErrWrongType
		}
		ans := c.answers[q.ID]
		kept := ans.Selection[:0:0]
		removed := false
		for _, sel := range ans.Selection {
			if sel == optionText {
				removed = true
				continue
			}
			kept = append(kept, sel)
		}
		if !removed {
			kept = append(kept, optionText)
		}
		c.answers[q.ID] = model.StudentAnswer{Selection: kept}
		return nil
	})
}

func (c *Controller) withCurrent(fn func(q model.Question) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case NotStarted:
		return ErrNotStarted
	case Finished:
		return ErrFinished
	}
	return fn(c.exam.Questions[c.index])
}

// Answers returns a copy of everything captured so far.
func (c *Controller) Answers() map[string]model.StudentAnswer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAnswers(c.answers)
}

// RequestFinish arms submission or quitting. Nothing happens until
// ConfirmFinish; a later RequestFinish replaces the pending status.
func (c *Controller) RequestFinish(status model.CompletionStatus) error {
	if status != model.CompletionCompleted && status != model.CompletionQuit {
		return ErrBadStatus
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case NotStarted:
		return ErrNotStarted
	case Finished:
		return ErrFinished
	}
	c.pending = status
	return nil
}

// CancelFinish drops a pending finish and returns to the attempt.
func (c *Controller) CancelFinish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = ""
}

// ConfirmFinish executes the armed finish, stopping the clock and
// delivering the attempt to the finish callback.
func (c *Controller) ConfirmFinish() error {
	c.mu.Lock()
	if c.state != InProgress {
		st := c.state
		c.mu.Unlock()
		if st == Finished {
			return ErrFinished
		}
		return ErrNotStarted
	}
	if c.pending == "" {
		c.mu.Unlock()
		return ErrNothingPending
	}
	deliver := c.finishLocked(c.pending)
	c.mu.Unlock()
	deliver()
	return nil
}

// Abort ends the attempt without delivering it: the clock stops and
// the finish callback never fires. Used when the attempt is replaced
// by a new one or its login session goes away.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != InProgress {
		return
	}
	c.state = Finished
	c.pending = ""
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// State reports the lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// finishLocked flips the attempt to Finished, stops the clock, and
// returns the callback invocation so the caller can run it after
// releasing the lock.
func (c *Controller) finishLocked(status model.CompletionStatus) func() {
	c.state = Finished
	c.pending = ""
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	answers := cloneAnswers(c.answers)
	start := c.startTime
	cb := c.onFinish
	return func() {
		if cb != nil {
			cb(answers, start, status)
		}
	}
}

func cloneAnswers(in map[string]model.StudentAnswer) map[string]model.StudentAnswer {
	out := make(map[string]model.StudentAnswer, len(in))
	for k, v := range in {
		sel := make([]string, len(v.Selection))
		copy(sel, v.Selection)
		out[k] = model.StudentAnswer{Text: v.Text, Selection: sel}
	}
	return out
}
