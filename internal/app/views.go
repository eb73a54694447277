package app

import (
	"sort"

	"github.com/nitzanh/examgen/internal/model"
)

// PortalExam pairs a published exam with the access code minted for a
// particular student.
type PortalExam struct {
	Exam       model.Exam `json:"exam"`
	AccessCode string     `json:"accessCode"`
}

// StudentPortal returns what a logged-in student sees: the published
// exams carrying a code for them and their own submissions, newest
// first.
func (a *App) StudentPortal(studentID string) ([]PortalExam, []model.Submission) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var exams []PortalExam
	for _, e := range a.exams {
		if e.Status != model.StatusPublished {
			continue
		}
		if code, ok := e.AccessCodes[studentID]; ok {
			exams = append(exams, PortalExam{Exam: e, AccessCode: code})
		}
	}

	var subs []model.Submission
	for _, s := range a.submissions {
		if s.StudentID == studentID {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})
	return exams, subs
}

// SubmissionRecord is a dashboard row: a submission joined with the
// exam title and student name it refers to.
type SubmissionRecord struct {
	model.Submission
	ExamTitle   string `json:"examTitle"`
	StudentName string `json:"studentName"`
}

// ResultsOverview joins submissions with their exam and student.
// Records whose exam or student has been deleted are skipped rather
// than shown half-resolved.
func (a *App) ResultsOverview() []SubmissionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []SubmissionRecord
	for _, sub := range a.submissions {
		exam, okE := a.examByIDLocked(sub.ExamID)
		st, okS := a.studentByIDLocked(sub.StudentID)
		if !okE || !okS {
			continue
		}
		out = append(out, SubmissionRecord{
			Submission:  sub,
			ExamTitle:   exam.Title,
			StudentName: st.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}
