package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nitzanh/examgen/internal/app"
	"github.com/nitzanh/examgen/internal/model"
)

type studentRequest struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Password string   `json:"password"`
	Class    string   `json:"class"`
	ImageURL string   `json:"imageUrl"`
	Subjects []string `json:"subjects"`
}

func (req studentRequest) toModel() model.Student {
	return model.Student{
		ID:       req.ID,
		Name:     req.Name,
		Password: req.Password,
		Class:    req.Class,
		ImageURL: req.ImageURL,
		Subjects: req.Subjects,
	}
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.app.Students())
}

func (h *Handler) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	st := req.toModel()
	if err := h.app.AddStudent(st); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, st)
}

func (h *Handler) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	st := req.toModel()
	st.ID = chi.URLParam(r, "studentID")
	if err := h.app.UpdateStudent(st); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, st)
}

func (h *Handler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteStudent(chi.URLParam(r, "studentID")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.app.ResultsOverview())
}

type portalResponse struct {
	Exams       []app.PortalExam   `json:"exams"`
	Submissions []model.Submission `json:"submissions"`
}

func (h *Handler) handlePortal(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	exams, subs := h.app.StudentPortal(user.ID)
	h.respond(w, http.StatusOK, portalResponse{Exams: exams, Submissions: subs})
}

// profileRequest is what a student may change about themselves. An
// empty password keeps the current one.
type profileRequest struct {
	Name     string   `json:"name" validate:"required"`
	Password string   `json:"password"`
	Class    string   `json:"class"`
	ImageURL string   `json:"imageUrl"`
	Subjects []string `json:"subjects"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req profileRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	st := model.Student{
		ID:       user.ID,
		Name:     req.Name,
		Password: req.Password,
		Class:    req.Class,
		ImageURL: req.ImageURL,
		Subjects: req.Subjects,
	}
	if err := h.app.UpdateStudent(st); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, _ := h.app.StudentByID(user.ID)
	h.respond(w, http.StatusOK, updated)
}
