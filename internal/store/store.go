// Package store persists quizzes and attempts. Attempts are stored whole,
// quiz snapshot included, so a reload reproduces ordering and grading.
package store

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type QuizListOpts struct {
	CourseID string
	Q        string // title substring
	Limit    int    // <= 0 means no limit
	Offset   int
}

type QuizSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	CourseID string    `json:"course_id"`
	Kind     quiz.Kind `json:"kind"`
	IsActive bool      `json:"is_active"`
}

type AttemptListOpts struct {
	QuizID    string
	StudentID string
	Status    attempt.Status // optional
	Limit     int            // <= 0 means no limit
	Offset    int
	Sort      string // started_at|submitted_at asc|desc (default: started_at asc)
}

type Store interface {
	PutQuiz(ctx context.Context, q quiz.Quiz) error
	GetQuiz(ctx context.Context, id string) (quiz.Quiz, error)
	ListQuizzes(ctx context.Context, opts QuizListOpts) ([]QuizSummary, error)

	// CreateAttempt inserts a new attempt. A second IN_PROGRESS attempt for
	// the same quiz and student fails with quiz.ErrAttemptAlreadyInProgress.
	CreateAttempt(ctx context.Context, a attempt.Attempt) error
	// UpdateAttempt overwrites an attempt whose stored status is still
	// IN_PROGRESS; otherwise it fails with quiz.ErrAttemptNotActive.
	UpdateAttempt(ctx context.Context, a attempt.Attempt) error
	// SaveGrades overwrites a terminal attempt after manual grading.
	SaveGrades(ctx context.Context, a attempt.Attempt) error
	GetAttempt(ctx context.Context, id string) (attempt.Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]attempt.Attempt, error)
}

// ErrUnsupportedSort rejects a sort key outside the whitelist.
var ErrUnsupportedSort = errors.New("unsupported sort")

var sortClauses = map[string]string{
	"":                  "started_at ASC, attempt_number ASC",
	"started_at asc":    "started_at ASC, attempt_number ASC",
	"started_at desc":   "started_at DESC, attempt_number DESC",
	"submitted_at asc":  "submitted_at ASC NULLS FIRST, started_at ASC, attempt_number ASC",
	"submitted_at desc": "submitted_at DESC NULLS LAST, started_at DESC, attempt_number DESC",
}
