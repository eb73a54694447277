// Package handler exposes the application as a JSON API: login,
// exam authoring and lifecycle, roster management, the student
// portal, and live attempt sessions.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nitzanh/examgen/internal/app"
	"github.com/nitzanh/examgen/internal/genai"
	appI18n "github.com/nitzanh/examgen/internal/i18n"
	"github.com/nitzanh/examgen/internal/model"
)

// Assistant is the AI surface the authoring endpoints use beyond what
// the application controller needs.
type Assistant interface {
	SuggestText(ctx context.Context, exam model.Exam, kind genai.SuggestionKind, qIndex, oIndex int) ([]string, error)
	SuggestNewChoiceQuestions(ctx context.Context, exam model.Exam, qType model.QuestionType) ([]genai.QuestionSuggestion, error)
	AssistantReply(ctx context.Context, exam model.Exam, message string) (string, error)
}

// Config holds handler settings.
type Config struct {
	SecureCookies bool
	// MaxUploadBytes caps the total size of a generation upload.
	MaxUploadBytes int64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	app      *app.App
	ai       Assistant
	config   Config
	validate *validator.Validate
	sessions *sessionRegistry
}

// New creates a new Handler.
func New(a *app.App, ai Assistant, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		app:      a,
		ai:       ai,
		config:   cfg,
		validate: validator.New(),
		sessions: newSessionRegistry(),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login/teacher", h.handleTeacherLogin)
	r.Post("/api/login/google", h.handleGoogleLogin)
	r.Post("/api/login/student", h.handleStudentLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/api/me", h.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher))
			r.Get("/api/exams", h.handleListExams)
			r.Post("/api/exams", h.handleCreateExam)
			r.Get("/api/exams/{examID}", h.handleGetExam)
			r.Put("/api/exams/{examID}", h.handleUpdateExam)
			r.Delete("/api/exams/{examID}", h.handleDeleteExam)
			r.Post("/api/exams/{examID}/publish", h.handlePublishExam)
			r.Post("/api/exams/{examID}/regenerate", h.handleRegenerateExam)
			r.Get("/api/exams/{examID}/codes", h.handleExamCodes)
			r.Post("/api/exams/{examID}/suggest", h.handleSuggest)
			r.Post("/api/exams/{examID}/suggest-questions", h.handleSuggestQuestions)
			r.Post("/api/exams/{examID}/assistant", h.handleAssistant)
			r.Post("/api/exams/{examID}/test-drive", h.handleTestDrive)

			r.Get("/api/students", h.handleListStudents)
			r.Post("/api/students", h.handleAddStudent)
			r.Put("/api/students/{studentID}", h.handleUpdateStudent)
			r.Delete("/api/students/{studentID}", h.handleDeleteStudent)

			r.Get("/api/results", h.handleResults)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Get("/api/portal", h.handlePortal)
			r.Put("/api/profile", h.handleUpdateProfile)
			r.Post("/api/attempt/start", h.handleStartAttempt)
		})

		// Attempt endpoints serve both students and teachers on a
		// test drive; the session itself gates access.
		r.Get("/api/attempt", h.handleAttemptState)
		r.Post("/api/attempt/answer", h.handleAttemptAnswer)
		r.Post("/api/attempt/next", h.handleAttemptNext)
		r.Post("/api/attempt/previous", h.handleAttemptPrevious)
		r.Post("/api/attempt/finish", h.handleAttemptFinish)
		r.Post("/api/attempt/finish/confirm", h.handleAttemptConfirm)
		r.Post("/api/attempt/finish/cancel", h.handleAttemptCancel)
		r.Get("/api/attempt/result", h.handleAttemptResult)
	})
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	h.respond(w, status, errorBody{Error: appI18n.T(r.Context(), msgID)})
}

// fail maps application and AI errors to an HTTP status and a
// localized message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrTeacherAuth):
		h.respondError(w, r, http.StatusUnauthorized, "TeacherLoginError")
	case errors.Is(err, app.ErrUnknownStudent):
		h.respondError(w, r, http.StatusUnauthorized, "UnknownStudentID")
	case errors.Is(err, app.ErrWrongPassword):
		h.respondError(w, r, http.StatusUnauthorized, "WrongPassword")
	case errors.Is(err, app.ErrEmptyRoster):
		h.respondError(w, r, http.StatusConflict, "CannotPublishNoStudents")
	case errors.Is(err, app.ErrPointsSum):
		h.respondError(w, r, http.StatusUnprocessableEntity, "PointsMustSumTo100")
	case errors.Is(err, app.ErrExamNotFound):
		h.respondError(w, r, http.StatusNotFound, "ExamNotFound")
	case errors.Is(err, app.ErrStudentNotFound):
		h.respondError(w, r, http.StatusNotFound, "StudentNotFound")
	case errors.Is(err, app.ErrStudentExists):
		h.respondError(w, r, http.StatusConflict, "StudentAlreadyExists")
	case errors.Is(err, app.ErrInvalidStudentID):
		h.respondError(w, r, http.StatusUnprocessableEntity, "InvalidStudentID")
	case errors.Is(err, genai.ErrNoAttachments):
		h.respondError(w, r, http.StatusBadRequest, "NoFilesProvided")
	case errors.Is(err, genai.ErrEmptyResponse), errors.Is(err, genai.ErrInvalidResponse):
		h.respondError(w, r, http.StatusBadGateway, "GenerationFailed")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
	}
}

// decode unmarshals and validates a JSON request body.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	slog.Debug("bad request", "path", r.URL.Path, "error", err)
	h.respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}
