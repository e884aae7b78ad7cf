// Package assessment runs the engine against storage: it loads quizzes and
// attempts, serializes writes through a Locker, applies the attempt state
// machine, persists the result and records lifecycle events.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/analytics"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/lock"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/store"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type Service struct {
	store  store.Store
	locks  lock.Locker
	events syncx.Log

	// Clock supplies "now" to every engine call. Defaults to time.Now.
	Clock func() time.Time
}

func NewService(st store.Store, locks lock.Locker, events syncx.Log) *Service {
	if locks == nil {
		locks = lock.NewMemoryLocker()
	}
	if events == nil {
		events = syncx.NewMemoryLog()
	}
	return &Service{store: st, locks: locks, events: events, Clock: time.Now}
}

// Now is the service clock in UTC.
func (s *Service) Now() time.Time { return s.Clock().UTC() }

// ---- Quizzes ----

// PublishQuiz validates and stores q, assigning an id when it has none.
func (s *Service) PublishQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := quiz.Validate(q); err != nil {
		return quiz.Quiz{}, err
	}
	if err := s.store.PutQuiz(ctx, q); err != nil {
		return quiz.Quiz{}, err
	}
	log.Printf("[assessment] quiz %s published (%d questions, active=%v)", q.ID, len(q.Questions), q.IsActive)
	return q, nil
}

func (s *Service) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	return s.store.GetQuiz(ctx, id)
}

func (s *Service) ListQuizzes(ctx context.Context, opts store.QuizListOpts) ([]store.QuizSummary, error) {
	return s.store.ListQuizzes(ctx, opts)
}

// ---- Attempts ----

// StartAttempt admits studentID to a new attempt on quizID. Admission is
// serialized per (quiz, student); an overdue in-flight attempt is expired
// first so it does not block the new one.
func (s *Service) StartAttempt(ctx context.Context, quizID, studentID string) (attempt.Attempt, error) {
	release, err := s.locks.Acquire(ctx, "start:"+quizID+":"+studentID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	defer release()

	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	prior, err := s.store.ListAttempts(ctx, store.AttemptListOpts{QuizID: quizID, StudentID: studentID})
	if err != nil {
		return attempt.Attempt{}, err
	}

	now := s.Now()
	for i := range prior {
		if !prior[i].Overdue(now) {
			continue
		}
		expired, err := s.expire(ctx, prior[i].ID, now)
		if err != nil {
			return attempt.Attempt{}, err
		}
		prior[i] = expired
	}

	a, err := attempt.Start(q, studentID, prior, "", now)
	if err != nil {
		return attempt.Attempt{}, err
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		return attempt.Attempt{}, err
	}
	s.emit(ctx, syncx.TypeAttemptStarted, a)
	log.Printf("[assessment] attempt %s started (quiz=%s student=%s n=%d)", a.ID, quizID, studentID, a.AttemptNumber)
	return a, nil
}

// RecordResponse stores answer selections for one question. studentID, when
// non-empty, must own the attempt.
func (s *Service) RecordResponse(ctx context.Context, attemptID, studentID, questionID string, answerIDs []string) (attempt.Attempt, error) {
	return s.mutate(ctx, attemptID, studentID, func(a *attempt.Attempt, now time.Time) error {
		return a.RecordResponse(questionID, answerIDs, now)
	})
}

// RecordTextResponse stores free text for a SHORT_ANSWER or ESSAY question.
func (s *Service) RecordTextResponse(ctx context.Context, attemptID, studentID, questionID, text string) (attempt.Attempt, error) {
	return s.mutate(ctx, attemptID, studentID, func(a *attempt.Attempt, now time.Time) error {
		return a.RecordTextResponse(questionID, text, now)
	})
}

// Submit finalizes and scores the attempt. A second call fails with
// quiz.ErrAttemptNotActive.
func (s *Service) Submit(ctx context.Context, attemptID, studentID string) (attempt.Attempt, error) {
	return s.mutate(ctx, attemptID, studentID, func(a *attempt.Attempt, now time.Time) error {
		return a.Submit(now)
	})
}

// GradeManually applies reviewer grades to a terminal attempt.
func (s *Service) GradeManually(ctx context.Context, attemptID, graderID string, grades map[string]grading.ManualGrade) (attempt.Attempt, error) {
	release, err := s.locks.Acquire(ctx, "attempt:"+attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	defer release()

	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	if err := a.ApplyManualGrades(grades); err != nil {
		return attempt.Attempt{}, err
	}
	if err := s.store.SaveGrades(ctx, a); err != nil {
		return attempt.Attempt{}, err
	}
	s.emit(ctx, syncx.TypeAttemptGraded, a)
	log.Printf("[assessment] attempt %s graded by %s (%d questions, pct=%.2f)", a.ID, graderID, len(grades), *a.Percentage)
	return a, nil
}

// GetAttempt returns the attempt, expiring it first if it is overdue.
func (s *Service) GetAttempt(ctx context.Context, attemptID string) (attempt.Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	if now := s.Now(); a.Overdue(now) {
		return s.expire(ctx, attemptID, now)
	}
	return a, nil
}

func (s *Service) ListAttempts(ctx context.Context, opts store.AttemptListOpts) ([]attempt.Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

// ExpireOverdue finalizes every in-progress attempt past its deadline at now
// and returns how many it expired.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	running, err := s.store.ListAttempts(ctx, store.AttemptListOpts{Status: attempt.StatusInProgress})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range running {
		if !a.Overdue(now) {
			continue
		}
		got, err := s.expire(ctx, a.ID, now)
		if err != nil {
			if errors.Is(err, quiz.ErrAttemptNotActive) {
				continue
			}
			return n, err
		}
		if got.Status == attempt.StatusExpired {
			n++
		}
	}
	return n, nil
}

// ---- Reporting ----

// QuizAnalytics aggregates every attempt on quizID as stored right now.
func (s *Service) QuizAnalytics(ctx context.Context, quizID string) (analytics.QuizAnalytics, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return analytics.QuizAnalytics{}, err
	}
	all, err := s.store.ListAttempts(ctx, store.AttemptListOpts{QuizID: quizID})
	if err != nil {
		return analytics.QuizAnalytics{}, err
	}
	return analytics.AggregateQuiz(all), nil
}

// EffectiveScore reduces a student's attempts on quizID with the quiz's
// current scoring method and pass mark.
func (s *Service) EffectiveScore(ctx context.Context, quizID, studentID string) (analytics.Effective, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return analytics.Effective{}, err
	}
	all, err := s.store.ListAttempts(ctx, store.AttemptListOpts{QuizID: quizID, StudentID: studentID})
	if err != nil {
		return analytics.Effective{}, err
	}
	return analytics.EffectiveScore(all, q.ScoringMethod, q.PassingPercentage)
}

// Events pages through the lifecycle event log after seq.
func (s *Service) Events(ctx context.Context, afterSeq int64, limit int) ([]syncx.Event, error) {
	return s.events.List(ctx, afterSeq, limit)
}

// ---- internals ----

// mutate loads the attempt under its lock, applies fn and persists the
// outcome. When fn expires the attempt, the EXPIRED state is persisted and
// fn's error is still returned.
func (s *Service) mutate(ctx context.Context, attemptID, studentID string, fn func(*attempt.Attempt, time.Time) error) (attempt.Attempt, error) {
	release, err := s.locks.Acquire(ctx, "attempt:"+attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	defer release()

	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	if studentID != "" && a.StudentID != studentID {
		return attempt.Attempt{}, fmt.Errorf("%w: attempt %s", quiz.ErrNotFound, attemptID)
	}

	before := a.Status
	opErr := fn(&a, s.Now())
	if a.Status == before && opErr != nil {
		return attempt.Attempt{}, opErr
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return attempt.Attempt{}, err
	}
	if a.Status != before {
		s.emitTerminal(ctx, a)
	}
	if opErr != nil {
		return a, opErr
	}
	return a, nil
}

// expire finalizes one overdue attempt under its lock. It returns the
// attempt as stored, whether or not this call changed it.
func (s *Service) expire(ctx context.Context, attemptID string, now time.Time) (attempt.Attempt, error) {
	release, err := s.locks.Acquire(ctx, "attempt:"+attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	defer release()

	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	changed, err := a.ExpireIfOverdue(now)
	if err != nil || !changed {
		return a, err
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return attempt.Attempt{}, err
	}
	s.emitTerminal(ctx, a)
	return a, nil
}

func (s *Service) emitTerminal(ctx context.Context, a attempt.Attempt) {
	typ := syncx.TypeAttemptSubmitted
	if a.Status == attempt.StatusExpired {
		typ = syncx.TypeAttemptExpired
	}
	s.emit(ctx, typ, a)
	log.Printf("[assessment] attempt %s %s (pct=%.2f)", a.ID, a.Status, *a.Percentage)
}

type eventData struct {
	QuizID        string         `json:"quiz_id"`
	StudentID     string         `json:"student_id"`
	AttemptNumber int            `json:"attempt_number"`
	Status        attempt.Status `json:"status"`
	Score         *float64       `json:"score,omitempty"`
	Percentage    *float64       `json:"percentage,omitempty"`
	IsPassed      *bool          `json:"is_passed,omitempty"`
	SubmittedAt   *time.Time     `json:"submitted_at,omitempty"`
}

// emit records an event. The state change is already committed, so a
// failure here is logged rather than returned.
func (s *Service) emit(ctx context.Context, typ string, a attempt.Attempt) {
	e, err := syncx.NewEvent(typ, a.ID, eventData{
		QuizID:        a.QuizID,
		StudentID:     a.StudentID,
		AttemptNumber: a.AttemptNumber,
		Status:        a.Status,
		Score:         a.Score,
		Percentage:    a.Percentage,
		IsPassed:      a.IsPassed,
		SubmittedAt:   a.SubmittedAt,
	})
	if err == nil {
		err = s.events.Append(ctx, e)
	}
	if err != nil {
		log.Printf("[assessment] event %s for %s: %v", typ, a.ID, err)
	}
}
