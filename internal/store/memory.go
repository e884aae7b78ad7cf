package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// MemoryStore keeps everything in process. It enforces the same constraints
// as the SQL schema and hands out copies only.
type MemoryStore struct {
	mu        sync.RWMutex
	quizzes   map[string]quiz.Quiz
	quizOrder []string
	attempts  map[string]attempt.Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quizzes:  map[string]quiz.Quiz{},
		attempts: map[string]attempt.Attempt{},
	}
}

func (m *MemoryStore) PutQuiz(_ context.Context, q quiz.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[q.ID]; !ok {
		m.quizOrder = append(m.quizOrder, q.ID)
	}
	m.quizzes[q.ID] = q.Clone()
	return nil
}

func (m *MemoryStore) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return quiz.Quiz{}, fmt.Errorf("%w: quiz %s", quiz.ErrNotFound, id)
	}
	return q.Clone(), nil
}

func (m *MemoryStore) ListQuizzes(_ context.Context, opts QuizListOpts) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(opts.Q))
	out := []QuizSummary{}
	for _, id := range m.quizOrder {
		q := m.quizzes[id]
		if opts.CourseID != "" && q.CourseID != opts.CourseID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(q.Title), needle) {
			continue
		}
		out = append(out, summarize(q))
	}
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (m *MemoryStore) CreateAttempt(_ context.Context, a attempt.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return fmt.Errorf("%w: quiz %s", quiz.ErrNotFound, a.QuizID)
	}
	if _, ok := m.attempts[a.ID]; ok {
		return fmt.Errorf("%w: attempt id %s already exists", quiz.ErrAttemptAlreadyInProgress, a.ID)
	}
	for _, cur := range m.attempts {
		if cur.QuizID != a.QuizID || cur.StudentID != a.StudentID {
			continue
		}
		if cur.AttemptNumber == a.AttemptNumber ||
			(cur.Status == attempt.StatusInProgress && a.Status == attempt.StatusInProgress) {
			return fmt.Errorf("%w: student %s on quiz %s", quiz.ErrAttemptAlreadyInProgress, a.StudentID, a.QuizID)
		}
	}
	m.attempts[a.ID] = a.Clone()
	return nil
}

func (m *MemoryStore) UpdateAttempt(_ context.Context, a attempt.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.attempts[a.ID]
	if !ok {
		return fmt.Errorf("%w: attempt %s", quiz.ErrNotFound, a.ID)
	}
	if cur.Status != attempt.StatusInProgress {
		return fmt.Errorf("%w: attempt %s is %s", quiz.ErrAttemptNotActive, a.ID, cur.Status)
	}
	m.attempts[a.ID] = a.Clone()
	return nil
}

func (m *MemoryStore) SaveGrades(_ context.Context, a attempt.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.attempts[a.ID]
	if !ok {
		return fmt.Errorf("%w: attempt %s", quiz.ErrNotFound, a.ID)
	}
	if !cur.Status.Terminal() || !a.Status.Terminal() {
		return fmt.Errorf("%w: attempt %s is still in progress", quiz.ErrAttemptNotActive, a.ID)
	}
	m.attempts[a.ID] = a.Clone()
	return nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (attempt.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return attempt.Attempt{}, fmt.Errorf("%w: attempt %s", quiz.ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]attempt.Attempt, error) {
	key := strings.ToLower(strings.TrimSpace(opts.Sort))
	if _, ok := sortClauses[key]; !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedSort, opts.Sort)
	}

	m.mu.RLock()
	out := []attempt.Attempt{}
	for _, a := range m.attempts {
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.StudentID != "" && a.StudentID != opts.StudentID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a.Clone())
	}
	m.mu.RUnlock()

	desc := strings.HasSuffix(key, "desc")
	bySubmitted := strings.HasPrefix(key, "submitted_at")
	sort.SliceStable(out, func(i, j int) bool {
		c := compareAttempts(out[i], out[j], bySubmitted)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return paginate(out, opts.Limit, opts.Offset), nil
}

func paginate[T any](in []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return in[:0]
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// compareAttempts orders ascending by the sort key, then started_at and
// attempt number. A missing submitted_at sorts first.
func compareAttempts(a, b attempt.Attempt, bySubmitted bool) int {
	if bySubmitted {
		as, bs := a.SubmittedAt, b.SubmittedAt
		switch {
		case as == nil && bs != nil:
			return -1
		case as != nil && bs == nil:
			return 1
		case as != nil && bs != nil && !as.Equal(*bs):
			return as.Compare(*bs)
		}
	}
	if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
		return c
	}
	if a.AttemptNumber != b.AttemptNumber {
		return a.AttemptNumber - b.AttemptNumber
	}
	return strings.Compare(a.ID, b.ID)
}
