package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"sync"

	appI18n "github.com/nitzanh/examgen/internal/i18n"
	"github.com/nitzanh/examgen/internal/model"
	"github.com/nitzanh/examgen/internal/session"
)

const sessionCookieName = "session"

// authSession is one logged-in browser: the identity plus, while an
// exam is being taken, the live attempt and its final submission.
type authSession struct {
	user model.User

	mu          sync.Mutex
	attempt     *session.Controller
	attemptExam model.Exam
	result      *model.Submission
}

// setAttempt installs a new attempt. A prior attempt still in progress
// is aborted first so its clock cannot fire a stale submission.
func (s *authSession) setAttempt(exam model.Exam, c *session.Controller) {
	s.mu.Lock()
	prev := s.attempt
	s.attempt = c
	s.attemptExam = exam
	s.result = nil
	s.mu.Unlock()
	if prev != nil {
		prev.Abort()
	}
}

// abort stops any attempt the session is still running.
func (s *authSession) abort() {
	s.mu.Lock()
	c := s.attempt
	s.mu.Unlock()
	if c != nil {
		c.Abort()
	}
}

func (s *authSession) currentAttempt() (*session.Controller, model.Exam, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt, s.attemptExam, s.attempt != nil
}

func (s *authSession) setResult(sub model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &sub
}

func (s *authSession) lastResult() (model.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return model.Submission{}, false
	}
	return *s.result, true
}

// sessionRegistry holds live login sessions in memory. Tokens are
// random and unguessable; a restart logs everyone out.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*authSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*authSession)}
}

func (r *sessionRegistry) create(user model.User) (string, *authSession, error) {
	token, err := generateToken()
	if err != nil {
		return "", nil, err
	}
	s := &authSession{user: user}
	r.mu.Lock()
	r.sessions[token] = s
	r.mu.Unlock()
	return token, s, nil
}

func (r *sessionRegistry) get(token string) *authSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[token]
}

// delete forgets a login session and aborts any attempt it was
// running so the abandoned clock cannot fire.
func (r *sessionRegistry) delete(token string) {
	r.mu.Lock()
	s := r.sessions[token]
	delete(r.sessions, token)
	r.mu.Unlock()
	if s != nil {
		s.abort()
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

type sessionKeyType struct{}

var sessionKey sessionKeyType

func contextWithSession(ctx context.Context, s *authSession) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func contextSession(r *http.Request) *authSession {
	s, _ := r.Context().Value(sessionKey).(*authSession)
	return s
}

// requireAuth checks for a valid session cookie and puts the user and
// session on the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.respond(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		sess := h.sessions.get(cookie.Value)
		if sess == nil {
			h.respond(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		ctx := model.ContextWithUser(r.Context(), &sess.user)
		ctx = contextWithSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}

type teacherLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User model.User `json:"user"`
	// Student carries the roster record on student logins.
	Student *model.Student `json:"student,omitempty"`
	// Exam is set when an access code routed straight into an exam.
	Exam         *model.Exam `json:"exam,omitempty"`
	CodeMismatch bool        `json:"codeMismatch,omitempty"`
	// Warning carries the localized notice shown when an access code
	// matched nothing; the login itself succeeded.
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) handleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	var req teacherLoginRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	user, err := h.app.TeacherLogin(req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.startSession(w, r, user, loginResponse{User: user})
}

func (h *Handler) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	user := h.app.FederatedTeacherLogin()
	h.startSession(w, r, user, loginResponse{User: user})
}

type studentLoginRequest struct {
	StudentID  string `json:"studentId" validate:"required"`
	Password   string `json:"password" validate:"required"`
	AccessCode string `json:"accessCode"`
}

func (h *Handler) handleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var req studentLoginRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	res, err := h.app.StudentLogin(req.StudentID, req.Password, req.AccessCode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := loginResponse{
		User:         res.User,
		Student:      &res.Student,
		Exam:         res.Exam,
		CodeMismatch: res.CodeMismatch,
	}
	if res.CodeMismatch {
		resp.Warning = appI18n.T(r.Context(), "WrongAccessCode")
	}
	h.startSession(w, r, res.User, resp)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user model.User, resp loginResponse) {
	token, _, err := h.sessions.create(user)
	if err != nil {
		slog.Error("creating session", "error", err)
		h.respond(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	h.setSessionCookie(w, token)
	h.respond(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		h.sessions.delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	h.respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	h.respond(w, http.StatusOK, loginResponse{User: *user})
}
