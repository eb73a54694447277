package app

import "errors"

// Sentinel errors returned by controller operations. Handlers map
// these to HTTP statuses and localized messages.
var (
	ErrTeacherAuth      = errors.New("invalid teacher credentials")
	ErrUnknownStudent   = errors.New("unknown student id")
	ErrWrongPassword    = errors.New("wrong password")
	ErrEmptyRoster      = errors.New("cannot publish: student roster is empty")
	ErrPointsSum        = errors.New("question points must sum to 100")
	ErrExamNotFound     = errors.New("exam not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrStudentExists    = errors.New("student id already registered")
	ErrInvalidStudentID = errors.New("student id must be 8 or 9 digits")
)
