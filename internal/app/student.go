package app

import (
	"fmt"

	"github.com/nitzanh/examgen/internal/model"
)

// AddStudent registers a new roster entry. The ID must be an 8 or 9
// digit national ID and must not already be registered.
func (a *App) AddStudent(st model.Student) error {
	if !model.ValidStudentID(st.ID) {
		return ErrInvalidStudentID
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.students {
		if s.ID == st.ID {
			return ErrStudentExists
		}
	}

	next := make([]model.Student, len(a.students), len(a.students)+1)
	copy(next, a.students)
	next = append(next, st)

	if err := a.store.SaveStudents(next); err != nil {
		return fmt.Errorf("saving students: %w", err)
	}
	a.students = next
	return nil
}

// UpdateStudent replaces a roster entry. An empty password keeps the
// current one, which lets the self-service profile form omit the
// field. Existing access codes and submissions are keyed by ID and
// are unaffected.
func (a *App) UpdateStudent(st model.Student) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]model.Student, len(a.students))
	copy(next, a.students)
	found := false
	for i, s := range next {
		if s.ID == st.ID {
			if st.Password == "" {
				st.Password = s.Password
			}
			next[i] = st
			found = true
			break
		}
	}
	if !found {
		return ErrStudentNotFound
	}

	if err := a.store.SaveStudents(next); err != nil {
		return fmt.Errorf("saving students: %w", err)
	}
	a.students = next
	return nil
}

// DeleteStudent removes a roster entry. The student's submissions and
// any access codes already minted for them are left in place.
func (a *App) DeleteStudent(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]model.Student, 0, len(a.students))
	found := false
	for _, s := range a.students {
		if s.ID == id {
			found = true
			continue
		}
		next = append(next, s)
	}
	if !found {
		return ErrStudentNotFound
	}

	if err := a.store.SaveStudents(next); err != nil {
		return fmt.Errorf("saving students: %w", err)
	}
	a.students = next
	return nil
}
