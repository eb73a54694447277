package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nitzanh/examgen/internal/app"
	"github.com/nitzanh/examgen/internal/model"
	"github.com/nitzanh/examgen/internal/session"
)

// gradingTimeout bounds the AI grading pass that runs when an attempt
// finishes, after the originating request is gone.
const gradingTimeout = 5 * time.Minute

type startAttemptRequest struct {
	ExamID string `json:"examId" validate:"required"`
}

// handleStartAttempt begins a timed attempt for the logged-in student.
// The exam must be published and carry an access code for them.
func (h *Handler) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := model.UserFromContext(r.Context())
	exam, ok := h.app.ExamByID(req.ExamID)
	if !ok || exam.Status != model.StatusPublished {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}
	if _, ok := exam.AccessCodes[user.ID]; !ok {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}

	h.beginAttempt(w, r, exam, *user)
}

// handleTestDrive lets a teacher walk through an exam as the
// test-drive identity. The attempt is scored but never recorded.
func (h *Handler) handleTestDrive(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.app.ExamByID(chi.URLParam(r, "examID"))
	if !ok {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}
	driver := model.User{ID: model.TestDriveID, Name: "Test Drive", Role: model.UserRoleStudent}
	h.beginAttempt(w, r, exam, driver)
}

func (h *Handler) beginAttempt(w http.ResponseWriter, r *http.Request, exam model.Exam, user model.User) {
	sess := contextSession(r)

	// Grading runs off the request goroutine; the client polls
	// /api/attempt/result for the outcome.
	ctrl := session.New(exam, func(answers map[string]model.StudentAnswer, start time.Time, status model.CompletionStatus) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), gradingTimeout)
			defer cancel()
			sub, err := h.app.RecordAttempt(ctx, exam, user, answers, start, status)
			if err != nil {
				slog.Error("recording attempt", "exam_id", exam.ID, "student_id", user.ID, "error", err)
				return
			}
			sess.setResult(sub)
		}()
	})

	sess.setAttempt(exam, ctrl)
	if err := ctrl.Start(); err != nil {
		h.badRequest(w, r, err)
		return
	}
	h.respondAttemptState(w, sess)
}

// questionView is the question as the examinee sees it: option texts
// without the correctness flags.
type questionView struct {
	ID           string             `json:"id"`
	Type         model.QuestionType `json:"type"`
	QuestionText string             `json:"questionText"`
	Points       int                `json:"points"`
	Options      []string           `json:"options,omitempty"`
}

type attemptStateResponse struct {
	ExamID           string                         `json:"examId"`
	Title            string                         `json:"title"`
	State            string                         `json:"state"`
	RemainingSeconds int                            `json:"remainingSeconds"`
	QuestionIndex    int                            `json:"questionIndex"`
	TotalQuestions   int                            `json:"totalQuestions"`
	Question         *questionView                  `json:"question,omitempty"`
	Answers          map[string]model.StudentAnswer `json:"answers"`
}

func stateLabel(s session.State) string {
	switch s {
	case session.InProgress:
		return "in_progress"
	case session.Finished:
		return "finished"
	default:
		return "not_started"
	}
}

func (h *Handler) respondAttemptState(w http.ResponseWriter, sess *authSession) {
	ctrl, exam, ok := sess.currentAttempt()
	if !ok {
		h.respond(w, http.StatusNotFound, errorBody{Error: "no attempt in progress"})
		return
	}

	resp := attemptStateResponse{
		ExamID:           exam.ID,
		Title:            exam.Title,
		State:            stateLabel(ctrl.State()),
		RemainingSeconds: ctrl.Remaining(),
		TotalQuestions:   len(exam.Questions),
		Answers:          ctrl.Answers(),
	}
	q, i := ctrl.Current()
	resp.QuestionIndex = i
	if ctrl.State() == session.InProgress {
		view := questionView{ID: q.ID, Type: q.Type, QuestionText: q.QuestionText, Points: q.Points}
		for _, opt := range q.Options {
			view.Options = append(view.Options, opt.Text)
		}
		resp.Question = &view
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *Handler) handleAttemptState(w http.ResponseWriter, r *http.Request) {
	h.respondAttemptState(w, contextSession(r))
}

type attemptAnswerRequest struct {
	Text   *string `json:"text,omitempty"`
	Option *string `json:"option,omitempty"`
}

// handleAttemptAnswer routes an answer to the current question: text
// for open-ended, an option pick otherwise. Single choice replaces the
// pick, multiple choice toggles it.
func (h *Handler) handleAttemptAnswer(w http.ResponseWriter, r *http.Request) {
	sess := contextSession(r)
	ctrl, _, ok := sess.currentAttempt()
	if !ok {
		h.respond(w, http.StatusNotFound, errorBody{Error: "no attempt in progress"})
		return
	}

	var req attemptAnswerRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	q, _ := ctrl.Current()
	var err error
	switch {
	case req.Text != nil:
		err = ctrl.SetText(*req.Text)
	case req.Option != nil && q.Type == model.SingleChoice:
		err = ctrl.SelectOption(*req.Option)
	case req.Option != nil:
		err = ctrl.ToggleOption(*req.Option)
	default:
		h.respond(w, http.StatusBadRequest, errorBody{Error: "text or option required"})
		return
	}
	if err != nil {
		h.attemptError(w, err)
		return
	}
	h.respondAttemptState(w, sess)
}

func (h *Handler) handleAttemptNext(w http.ResponseWriter, r *http.Request) {
	sess := contextSession(r)
	if ctrl, _, ok := sess.currentAttempt(); ok {
		ctrl.Next()
	}
	h.respondAttemptState(w, sess)
}

func (h *Handler) handleAttemptPrevious(w http.ResponseWriter, r *http.Request) {
	sess := contextSession(r)
	if ctrl, _, ok := sess.currentAttempt(); ok {
		ctrl.Previous()
	}
	h.respondAttemptState(w, sess)
}

type finishRequest struct {
	Status model.CompletionStatus `json:"status" validate:"required"`
}

func (h *Handler) handleAttemptFinish(w http.ResponseWriter, r *http.Request) {
	sess := contextSession(r)
	ctrl, _, ok := sess.currentAttempt()
	if !ok {
		h.respond(w, http.StatusNotFound, errorBody{Error: "no attempt in progress"})
		return
	}
	var req finishRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := ctrl.RequestFinish(req.Status); err != nil {
		h.attemptError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"pending": string(req.Status)})
}

func (h *Handler) handleAttemptConfirm(w http.ResponseWriter, r *http.Request) {
	sess := contextSession(r)
	ctrl, _, ok := sess.currentAttempt()
	if !ok {
		h.respond(w, http.StatusNotFound, errorBody{Error: "no attempt in progress"})
		return
	}
	if err := ctrl.ConfirmFinish(); err != nil {
		h.attemptError(w, err)
		return
	}
	h.respondAttemptState(w, sess)
}

func (h *Handler) handleAttemptCancel(w http.ResponseWriter, r *http.Request) {
	sess := contextSession(r)
	if ctrl, _, ok := sess.currentAttempt(); ok {
		ctrl.CancelFinish()
	}
	h.respondAttemptState(w, sess)
}

// handleAttemptResult returns the graded submission once the finish
// callback has recorded it. Grading may still be running when the
// attempt ends; callers poll until the result appears.
func (h *Handler) handleAttemptResult(w http.ResponseWriter, r *http.Request) {
	sess := contextSession(r)
	sub, ok := sess.lastResult()
	if !ok {
		h.respond(w, http.StatusAccepted, map[string]string{"status": "grading"})
		return
	}
	h.respond(w, http.StatusOK, sub)
}

func (h *Handler) attemptError(w http.ResponseWriter, err error) {
	status := http.StatusConflict
	switch err {
	case session.ErrWrongType, session.ErrBadStatus:
		status = http.StatusBadRequest
	}
	h.respond(w, status, errorBody{Error: err.Error()})
}
