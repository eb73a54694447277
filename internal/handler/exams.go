package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nitzanh/examgen/internal/app"
	"github.com/nitzanh/examgen/internal/genai"
	appI18n "github.com/nitzanh/examgen/internal/i18n"
	"github.com/nitzanh/examgen/internal/model"
)

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.app.Exams())
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.app.ExamByID(chi.URLParam(r, "examID"))
	if !ok {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}
	h.respond(w, http.StatusOK, exam)
}

// handleCreateExam accepts a multipart form: one or more source files
// plus the question counts and time limit. An examId field switches
// from creating a new exam to replacing an existing one.
func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		h.badRequest(w, r, err)
		return
	}

	in := app.CreateExamInput{
		NumSingleChoice:   formInt(r, "numSingleChoice"),
		NumMultipleChoice: formInt(r, "numMultipleChoice"),
		NumOpenEnded:      formInt(r, "numOpenEnded"),
		Duration:          formInt(r, "duration"),
		ExamID:            r.FormValue("examId"),
	}
	if in.Duration <= 0 {
		in.Duration = 30
	}

	for _, fh := range r.MultipartForm.File["files"] {
		att, err := readAttachment(fh)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		in.Files = append(in.Files, att)
	}
	if len(in.Files) == 0 {
		h.fail(w, r, genai.ErrNoAttachments)
		return
	}

	exam, err := h.app.CreateExam(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, exam)
}

func readAttachment(fh *multipart.FileHeader) (genai.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return genai.Attachment{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return genai.Attachment{}, err
	}
	return genai.Attachment{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func formInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.FormValue(name))
	return n
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	var exam model.Exam
	if err := h.decode(r, &exam); err != nil {
		h.badRequest(w, r, err)
		return
	}
	exam.ID = chi.URLParam(r, "examID")
	if err := h.app.UpdateExam(exam); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteExam(chi.URLParam(r, "examID")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handlePublishExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.app.PublishExam(chi.URLParam(r, "examID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, exam)
}

func (h *Handler) handleRegenerateExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.app.RegenerateExam(r.Context(), chi.URLParam(r, "examID"))
	switch {
	case errors.Is(err, genai.ErrEmptyResponse), errors.Is(err, genai.ErrInvalidResponse):
		h.respondError(w, r, http.StatusBadGateway, "RegenerationFailed")
	case err != nil:
		h.fail(w, r, err)
	default:
		h.respond(w, http.StatusOK, exam)
	}
}

// codeEntry pairs a roster student with their access code for one exam.
type codeEntry struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	AccessCode  string `json:"accessCode"`
}

func (h *Handler) handleExamCodes(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.app.ExamByID(chi.URLParam(r, "examID"))
	if !ok {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}
	var entries []codeEntry
	for _, st := range h.app.Students() {
		if code, ok := exam.AccessCodes[st.ID]; ok {
			entries = append(entries, codeEntry{StudentID: st.ID, StudentName: st.Name, AccessCode: code})
		}
	}
	h.respond(w, http.StatusOK, entries)
}

type suggestRequest struct {
	Kind          genai.SuggestionKind `json:"kind" validate:"required"`
	QuestionIndex int                  `json:"questionIndex"`
	OptionIndex   int                  `json:"optionIndex"`
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.app.ExamByID(chi.URLParam(r, "examID"))
	if !ok {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}
	var req suggestRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	suggestions, err := h.ai.SuggestText(r.Context(), exam, req.Kind, req.QuestionIndex, req.OptionIndex)
	if err != nil {
		slog.Error("suggestion failed", "exam_id", exam.ID, "kind", req.Kind, "error", err)
		h.respondError(w, r, http.StatusBadGateway, "SuggestionFailed")
		return
	}
	h.respond(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

type suggestQuestionsRequest struct {
	Type model.QuestionType `json:"type" validate:"required"`
}

func (h *Handler) handleSuggestQuestions(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.app.ExamByID(chi.URLParam(r, "examID"))
	if !ok {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}
	var req suggestQuestionsRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	suggestions, err := h.ai.SuggestNewChoiceQuestions(r.Context(), exam, req.Type)
	if err != nil {
		slog.Error("question suggestion failed", "exam_id", exam.ID, "type", req.Type, "error", err)
		h.respondError(w, r, http.StatusBadGateway, "SuggestionFailed")
		return
	}
	h.respond(w, http.StatusOK, map[string][]genai.QuestionSuggestion{"suggestions": suggestions})
}

type assistantRequest struct {
	Message string `json:"message" validate:"required"`
}

func (h *Handler) handleAssistant(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.app.ExamByID(chi.URLParam(r, "examID"))
	if !ok {
		h.fail(w, r, app.ErrExamNotFound)
		return
	}
	var req assistantRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	reply, err := h.ai.AssistantReply(r.Context(), exam, req.Message)
	if err != nil {
		// The chat surface degrades to an apology instead of erroring.
		slog.Error("assistant reply failed", "exam_id", exam.ID, "error", err)
		reply = appI18n.T(r.Context(), "AssistantUnavailable")
	}
	h.respond(w, http.StatusOK, map[string]string{"reply": reply})
}
