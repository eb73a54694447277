// Package store persists the application's three top-level collections
// as whole JSON documents keyed by collection name. Every mutation
// rewrites the full collection; there are no partial updates and no
// transactions across collections.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nitzanh/examgen/internal/model"

	_ "modernc.org/sqlite"
)

// Collection names. These are part of the stored contract and must not
// change without a migration.
const (
	CollectionExams       = "examHistory"
	CollectionStudents    = "studentList"
	CollectionSubmissions = "submissions"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WriteCollection serializes v and replaces the named collection in a
// single statement, so a collection is always either its previous
// value or the complete new one.
func (s *Store) WriteCollection(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = ?, updated_at = ?`,
		name, string(data), time.Now(), string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("write collection %s: %w", name, err)
	}
	return nil
}

// ReadCollection loads the named collection into v. A missing
// collection leaves v untouched and returns false.
func (s *Store) ReadCollection(name string, v any) (bool, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read collection %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("parse collection %s: %w", name, err)
	}
	return true, nil
}

// SaveExams rewrites the exam collection.
func (s *Store) SaveExams(exams []model.Exam) error {
	return s.WriteCollection(CollectionExams, exams)
}

// LoadExams returns the exam collection, or nil if never written.
func (s *Store) LoadExams() ([]model.Exam, error) {
	var exams []model.Exam
	if _, err := s.ReadCollection(CollectionExams, &exams); err != nil {
		return nil, err
	}
	return exams, nil
}

// SaveStudents rewrites the student roster collection.
func (s *Store) SaveStudents(students []model.Student) error {
	return s.WriteCollection(CollectionStudents, students)
}

// LoadStudents returns the student roster, or nil if never written.
func (s *Store) LoadStudents() ([]model.Student, error) {
	var students []model.Student
	if _, err := s.ReadCollection(CollectionStudents, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// SaveSubmissions rewrites the submission collection.
func (s *Store) SaveSubmissions(submissions []model.Submission) error {
	return s.WriteCollection(CollectionSubmissions, submissions)
}

// LoadSubmissions returns the submission collection, or nil if never
// written.
func (s *Store) LoadSubmissions() ([]model.Submission, error) {
	var submissions []model.Submission
	if _, err := s.ReadCollection(CollectionSubmissions, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}
