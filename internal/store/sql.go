package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

func NewSQLStore(conn *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: conn, driver: driver}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q quiz.Quiz) error {
	def, err := json.Marshal(q)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,title,course_id,is_active,definition_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, course_id=EXCLUDED.course_id,
			is_active=EXCLUDED.is_active, definition_json=EXCLUDED.definition_json, updated_at=EXCLUDED.updated_at`,
		q.ID, q.Title, q.CourseID, q.IsActive, string(def), now)
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `SELECT definition_json FROM quizzes WHERE id=$1`, id).Scan(&def)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Quiz{}, fmt.Errorf("%w: quiz %s", quiz.ErrNotFound, id)
		}
		return quiz.Quiz{}, err
	}
	var q quiz.Quiz
	if err := json.Unmarshal([]byte(def), &q); err != nil {
		return quiz.Quiz{}, fmt.Errorf("decode quiz %s: %w", id, err)
	}
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts QuizListOpts) ([]QuizSummary, error) {
	var (
		where []string
		args  []any
	)
	if opts.CourseID != "" {
		args = append(args, opts.CourseID)
		where = append(where, fmt.Sprintf("course_id=$%d", len(args)))
	}
	if q := strings.TrimSpace(opts.Q); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	query := `SELECT definition_json FROM quizzes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC" + s.page(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []QuizSummary{}
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, err
		}
		var q quiz.Quiz
		if err := json.Unmarshal([]byte(def), &q); err != nil {
			return nil, err
		}
		out = append(out, summarize(q))
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a attempt.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,quiz_id,student_id,attempt_number,status,started_at,submitted_at,percentage,data_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.QuizID, a.StudentID, a.AttemptNumber, string(a.Status),
		a.StartedAt.UnixMilli(), millis(a.SubmittedAt), a.Percentage, string(data))
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: student %s on quiz %s", quiz.ErrAttemptAlreadyInProgress, a.StudentID, a.QuizID)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: quiz %s", quiz.ErrNotFound, a.QuizID)
	default:
		return err
	}
}

func (s *SQLStore) UpdateAttempt(ctx context.Context, a attempt.Attempt) error {
	return s.overwrite(ctx, a, `status=$6`, string(attempt.StatusInProgress), quiz.ErrAttemptNotActive)
}

func (s *SQLStore) SaveGrades(ctx context.Context, a attempt.Attempt) error {
	if !a.Status.Terminal() {
		return fmt.Errorf("%w: attempt %s is still in progress", quiz.ErrAttemptNotActive, a.ID)
	}
	return s.overwrite(ctx, a, `status<>$6`, string(attempt.StatusInProgress), quiz.ErrAttemptNotActive)
}

// overwrite replaces the stored row for a when guard holds, and reports
// guardErr when the row exists but the guard failed.
func (s *SQLStore) overwrite(ctx context.Context, a attempt.Attempt, guard, guardArg string, guardErr error) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts
		SET status=$1, submitted_at=$2, percentage=$3, data_json=$4
		WHERE id=$5 AND `+guard,
		string(a.Status), millis(a.SubmittedAt), a.Percentage, string(data), a.ID, guardArg)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	cur, err := s.GetAttempt(ctx, a.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: attempt %s is %s", guardErr, a.ID, cur.Status)
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (attempt.Attempt, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data_json FROM attempts WHERE id=$1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attempt.Attempt{}, fmt.Errorf("%w: attempt %s", quiz.ErrNotFound, id)
		}
		return attempt.Attempt{}, err
	}
	var a attempt.Attempt
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return attempt.Attempt{}, fmt.Errorf("decode attempt %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]attempt.Attempt, error) {
	order, ok := sortClauses[strings.ToLower(strings.TrimSpace(opts.Sort))]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedSort, opts.Sort)
	}
	var (
		where []string
		args  []any
	)
	if opts.QuizID != "" {
		args = append(args, opts.QuizID)
		where = append(where, fmt.Sprintf("quiz_id=$%d", len(args)))
	}
	if opts.StudentID != "" {
		args = append(args, opts.StudentID)
		where = append(where, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	query := `SELECT data_json FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order + s.page(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []attempt.Attempt{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var a attempt.Attempt
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) page(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		if offset == 0 {
			return ""
		}
		if s.driver == db.DriverSQLite {
			return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
		}
		return fmt.Sprintf(" OFFSET %d", offset)
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

func millis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

func summarize(q quiz.Quiz) QuizSummary {
	return QuizSummary{ID: q.ID, Title: q.Title, CourseID: q.CourseID, Kind: q.Kind, IsActive: q.IsActive}
}
