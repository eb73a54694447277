package app

import (
	"strings"

	"github.com/nitzanh/examgen/internal/model"
)

// TeacherLogin checks the configured credential pair. The username
// comparison is case-insensitive; the error is the same for a wrong
// username and a wrong password.
func (a *App) TeacherLogin(username, password string) (model.User, error) {
	if !strings.EqualFold(username, a.cfg.TeacherUsername) || password != a.cfg.TeacherPassword {
		return model.User{}, ErrTeacherAuth
	}
	name := a.cfg.TeacherName
	if name == "" {
		name = a.cfg.TeacherUsername
	}
	return model.User{ID: "teacher-" + strings.ToLower(a.cfg.TeacherUsername), Name: name, Role: model.UserRoleTeacher}, nil
}

// FederatedTeacherLogin grants a teacher identity on behalf of an
// external identity provider. No verification is performed here; the
// handler layer is expected to have completed the provider flow.
func (a *App) FederatedTeacherLogin() model.User {
	return model.User{ID: "teacher-google", Name: "Teacher (Google)", Role: model.UserRoleTeacher}
}

// StudentLoginResult is the outcome of a successful student login.
type StudentLoginResult struct {
	User    model.User
	Student model.Student
	// Exam is set when the supplied access code matched a published
	// exam for this student; the caller may route straight into it.
	Exam *model.Exam
	// CodeMismatch reports that a code was supplied but matched no
	// published exam. The login itself still succeeds.
	CodeMismatch bool
}

// StudentLogin authenticates a roster student and optionally resolves
// an exam access code. An unknown ID and a wrong password produce
// distinct errors.
func (a *App) StudentLogin(id, password, accessCode string) (StudentLoginResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.studentByIDLocked(id)
	if !ok {
		return StudentLoginResult{}, ErrUnknownStudent
	}
	if st.Password != password {
		return StudentLoginResult{}, ErrWrongPassword
	}

	res := StudentLoginResult{
		User:    model.User{ID: st.ID, Name: st.Name, Role: model.UserRoleStudent},
		Student: st,
	}
	if accessCode == "" {
		return res, nil
	}

	for _, e := range a.exams {
		if e.Status != model.StatusPublished {
			continue
		}
		if e.AccessCodes[st.ID] == accessCode {
			exam := e
			res.Exam = &exam
			return res, nil
		}
	}
	res.CodeMismatch = true
	return res, nil
}
