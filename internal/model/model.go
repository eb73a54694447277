package model

import (
	"context"
	"regexp"
	"time"
)

// UserRole represents a session identity's access level.
type UserRole string

const (
	// UserRoleTeacher is a teacher identity.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleStudent is a student identity.
	UserRoleStudent UserRole = "student"
)

// TestDriveID is the reserved student ID a teacher assumes when
// previewing an exam. Attempts under this identity run the normal
// session and scoring paths but are never persisted.
const TestDriveID = "000000000"

// User is a session identity. It is rebuilt on every login and never
// persisted.
type User struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// IsTestDrive reports whether this identity is the reserved
// teacher-preview pseudo-student.
func (u User) IsTestDrive() bool {
	return u.ID == TestDriveID
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType represents the kind of an exam question.
type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	OpenEnded      QuestionType = "open-ended"
)

// ExamStatus represents an exam's lifecycle state.
type ExamStatus string

const (
	StatusDraft     ExamStatus = "draft"
	StatusPublished ExamStatus = "published"
)

// CompletionStatus records how an attempt ended.
type CompletionStatus string

const (
	CompletionCompleted CompletionStatus = "completed"
	CompletionTimedOut  CompletionStatus = "time_out"
	CompletionQuit      CompletionStatus = "quit"
)

// AnswerOption is one selectable answer of a closed question.
type AnswerOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is one assessable item of an exam.
// Options is present for closed types only; CorrectAnswer holds the
// model answer for open-ended questions only.
type Question struct {
	ID            string         `json:"id"`
	Type          QuestionType   `json:"type"`
	QuestionText  string         `json:"questionText"`
	Points        int            `json:"points"`
	Options       []AnswerOption `json:"options,omitempty"`
	CorrectAnswer string         `json:"correctAnswer,omitempty"`
}

// CorrectOptionTexts returns the texts of all options flagged correct,
// in option order.
func (q Question) CorrectOptionTexts() []string {
	var texts []string
	for _, opt := range q.Options {
		if opt.IsCorrect {
			texts = append(texts, opt.Text)
		}
	}
	return texts
}

// TotalPoints sums the point values of a question list.
func TotalPoints(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}

// Exam is a titled, timed, ordered collection of questions with a
// lifecycle status. AccessCodes maps studentID -> 6-digit code and is
// present only once the exam is published.
type Exam struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	SourceFileNames []string          `json:"sourceFileNames,omitempty"`
	Duration        int               `json:"duration"` // minutes
	Questions       []Question        `json:"questions"`
	Status          ExamStatus        `json:"status"`
	CreationDate    time.Time         `json:"creationDate"`
	AccessCodes     map[string]string `json:"accessCodes,omitempty"`
}

// CountByType returns how many questions of the given type the exam has.
func (e Exam) CountByType(t QuestionType) int {
	n := 0
	for _, q := range e.Questions {
		if q.Type == t {
			n++
		}
	}
	return n
}

var studentIDRe = regexp.MustCompile(`^\d{8,9}$`)

// ValidStudentID reports whether id is an 8-9 digit numeric string.
func ValidStudentID(id string) bool {
	return studentIDRe.MatchString(id)
}

// Student is a roster entry. The password is stored as entered; the
// product compares it verbatim on login.
type Student struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Class    string   `json:"class"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Subjects []string `json:"subjects"`
}

// StudentAnswer is either a single string (single-choice, open-ended)
// or a list of selected option texts (multiple-choice).
type StudentAnswer struct {
	Text      string   `json:"text,omitempty"`
	Selection []string `json:"selection,omitempty"`
}

// IsEmpty reports whether no answer content was captured.
func (a StudentAnswer) IsEmpty() bool {
	return a.Text == "" && len(a.Selection) == 0
}

// GradedAnswer holds the AI assessment of one open-ended answer.
type GradedAnswer struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Submission is the immutable record of one attempt.
//
// TotalQuestions carries the total points possible, not a question
// count. The historical field name is part of the stored shape and is
// kept as-is; downstream consumers read it as the score denominator.
type Submission struct {
	ExamID           string                   `json:"examId"`
	StudentID        string                   `json:"studentId"`
	Answers          map[string]StudentAnswer `json:"answers"`
	Score            int                      `json:"score"`
	TotalQuestions   int                      `json:"totalQuestions"`
	SubmittedAt      time.Time                `json:"submittedAt"`
	StartTime        time.Time                `json:"startTime"`
	CompletionStatus CompletionStatus         `json:"completionStatus"`
	GradedAnswers    map[string]GradedAnswer  `json:"gradedAnswers,omitempty"`
}
