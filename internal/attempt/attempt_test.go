package attempt_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/ordering"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/quiz/quiztest"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func mustStart(t *testing.T, q quiz.Quiz, prior []attempt.Attempt, id string, now time.Time) attempt.Attempt {
	t.Helper()
	a, err := attempt.Start(q, "stu-1", prior, id, now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return a
}

func finished(t *testing.T, a attempt.Attempt, now time.Time) attempt.Attempt {
	t.Helper()
	if err := a.Submit(now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return a
}

func TestStart_CreatesInProgressAttempt(t *testing.T) {
	q := quiztest.Shuffled()
	a := mustStart(t, q, nil, "att-1", t0)

	if a.Status != attempt.StatusInProgress || a.AttemptNumber != 1 || !a.StartedAt.Equal(t0) {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	want, err := ordering.OrderFor(q, "att-1")
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	got := ordering.Order{QuestionOrder: a.QuestionOrder, AnswerOrderByQuestion: a.AnswerOrderByQuestion}
	if !got.Equal(want) {
		t.Fatalf("attempt order %v does not match OrderFor %v", got, want)
	}
	if a.Score != nil || a.Percentage != nil || a.IsPassed != nil {
		t.Fatalf("score must not exist before submit")
	}
}

func TestStart_GeneratesID(t *testing.T) {
	a := mustStart(t, quiztest.Sample(), nil, "", t0)
	if a.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestStart_SnapshotIsolatedFromEdits(t *testing.T) {
	q := quiztest.Sample()
	a := mustStart(t, q, nil, "att-1", t0)
	q.Questions[0].Answers[1].IsCorrect = false
	q.Questions[0].Answers[2].IsCorrect = true

	if err := a.RecordResponse("q1", []string{"6"}, t0.Add(time.Minute)); err != nil {
		t.Fatalf("record: %v", err)
	}
	a = finished(t, a, t0.Add(2*time.Minute))
	if *a.Score != 10 {
		t.Fatalf("score = %v, want 10 under the original definition", *a.Score)
	}
}

func TestStart_AttemptCap(t *testing.T) {
	q := quiztest.Sample() // max 3
	var prior []attempt.Attempt
	for i := 1; i <= 3; i++ {
		a := mustStart(t, q, prior, fmt.Sprintf("att-%d", i), t0)
		if a.AttemptNumber != i {
			t.Fatalf("attempt number = %d, want %d", a.AttemptNumber, i)
		}
		prior = append(prior, finished(t, a, t0.Add(time.Minute)))
	}
	_, err := attempt.Start(q, "stu-1", prior, "att-4", t0)
	if !errors.Is(err, quiz.ErrAttemptLimitExceeded) {
		t.Fatalf("expected ErrAttemptLimitExceeded, got %v", err)
	}

	// other students' attempts do not count
	if _, err := attempt.Start(q, "stu-2", prior, "att-x", t0); err != nil {
		t.Fatalf("other student: %v", err)
	}
}

func TestStart_UnlimitedAttempts(t *testing.T) {
	q := quiztest.Untimed()
	var prior []attempt.Attempt
	for i := 1; i <= 25; i++ {
		a := mustStart(t, q, prior, fmt.Sprintf("att-%d", i), t0)
		prior = append(prior, finished(t, a, t0))
	}
	if prior[24].AttemptNumber != 25 {
		t.Fatalf("attempt number = %d, want 25", prior[24].AttemptNumber)
	}
}

func TestStart_SingleInFlight(t *testing.T) {
	q := quiztest.Sample()
	first := mustStart(t, q, nil, "att-1", t0)

	_, err := attempt.Start(q, "stu-1", []attempt.Attempt{first}, "att-2", t0)
	if !errors.Is(err, quiz.ErrQuizNotAvailable) || !errors.Is(err, quiz.ErrAttemptAlreadyInProgress) {
		t.Fatalf("expected not available / already in progress, got %v", err)
	}

	first = finished(t, first, t0.Add(time.Minute))
	if _, err := attempt.Start(q, "stu-1", []attempt.Attempt{first}, "att-2", t0.Add(2*time.Minute)); err != nil {
		t.Fatalf("second attempt after submit: %v", err)
	}
}

func TestStart_InvariantViolation(t *testing.T) {
	q := quiztest.Untimed()
	a := mustStart(t, q, nil, "att-1", t0)
	b := a
	b.ID = "att-2"
	_, err := attempt.Start(q, "stu-1", []attempt.Attempt{a, b}, "att-3", t0)
	if !errors.Is(err, quiz.ErrAttemptAlreadyInProgress) || errors.Is(err, quiz.ErrQuizNotAvailable) {
		t.Fatalf("expected bare ErrAttemptAlreadyInProgress, got %v", err)
	}
}

func TestStart_Availability(t *testing.T) {
	inactive := quiztest.Sample()
	inactive.IsActive = false

	start := t0.Add(time.Hour)
	end := t0.Add(3 * time.Hour)
	windowed := quiztest.Sample()
	windowed.AvailabilityWindow = &quiz.Window{Start: &start, End: &end}

	cases := []struct {
		name string
		q    quiz.Quiz
		now  time.Time
	}{
		{"inactive", inactive, t0},
		{"before window", windowed, t0},
		{"after window", windowed, end.Add(time.Second)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := attempt.Start(c.q, "stu-1", nil, "att-1", c.now)
			if !errors.Is(err, quiz.ErrQuizNotAvailable) {
				t.Fatalf("expected ErrQuizNotAvailable, got %v", err)
			}
		})
	}
	if _, err := attempt.Start(windowed, "stu-1", nil, "att-1", start.Add(time.Minute)); err != nil {
		t.Fatalf("inside window: %v", err)
	}
}

func TestStart_InvalidQuiz(t *testing.T) {
	q := quiztest.Sample()
	q.Questions[1].Answers[0].IsCorrect = false
	q.Questions[1].Answers[2].IsCorrect = false
	_, err := attempt.Start(q, "stu-1", nil, "att-1", t0)
	if !errors.Is(err, quiz.ErrInvalidQuizDefinition) {
		t.Fatalf("expected ErrInvalidQuizDefinition, got %v", err)
	}
}

func TestRecordResponse(t *testing.T) {
	a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)

	if err := a.RecordResponse("q1", []string{"7"}, t0.Add(time.Minute)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := a.RecordResponse("q1", []string{"6"}, t0.Add(2*time.Minute)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got := fmt.Sprint(a.Responses["q1"]); got != "[6]" {
		t.Fatalf("last write should win, got %s", got)
	}
	if got := a.QuestionSeconds["q1"]; got != 120 {
		t.Fatalf("question seconds = %v, want 120", got)
	}
	if a.Score != nil {
		t.Fatalf("recording must not score")
	}

	if err := a.RecordResponse("nope", []string{"6"}, t0.Add(3*time.Minute)); !errors.Is(err, quiz.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
	if err := a.RecordResponse("q1", []string{"1"}, t0.Add(3*time.Minute)); !errors.Is(err, quiz.ErrUnknownQuestion) {
		t.Fatalf("foreign answer id: expected ErrUnknownQuestion, got %v", err)
	}
	if err := a.RecordResponse("q4", []string{"6"}, t0.Add(3*time.Minute)); !errors.Is(err, quiz.ErrUnknownQuestion) {
		t.Fatalf("selection on essay: expected ErrUnknownQuestion, got %v", err)
	}
	if err := a.RecordTextResponse("q1", "six", t0.Add(3*time.Minute)); !errors.Is(err, quiz.ErrUnknownQuestion) {
		t.Fatalf("text on single choice: expected ErrUnknownQuestion, got %v", err)
	}
	if err := a.RecordTextResponse("q4", "same value, different parts", t0.Add(4*time.Minute)); err != nil {
		t.Fatalf("text: %v", err)
	}

	if err := a.RecordResponse("q1", nil, t0.Add(5*time.Minute)); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := a.Responses["q1"]; ok {
		t.Fatalf("empty selection should clear the question")
	}
}

func TestRecordResponse_AfterTerminal(t *testing.T) {
	a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
	a = finished(t, a, t0.Add(time.Minute))
	err := a.RecordResponse("q1", []string{"6"}, t0.Add(2*time.Minute))
	if !errors.Is(err, quiz.ErrAttemptNotActive) {
		t.Fatalf("expected ErrAttemptNotActive, got %v", err)
	}
}

func TestExpiry_LazyOnRecordThenSubmitRejected(t *testing.T) {
	a := mustStart(t, quiztest.Sample(), nil, "att-1", t0) // 30 min limit
	if err := a.RecordResponse("q1", []string{"6"}, t0.Add(10*time.Minute)); err != nil {
		t.Fatalf("record: %v", err)
	}

	err := a.RecordResponse("q2", []string{"1", "3"}, t0.Add(31*time.Minute))
	if !errors.Is(err, quiz.ErrAttemptExpired) {
		t.Fatalf("expected ErrAttemptExpired, got %v", err)
	}
	if a.Status != attempt.StatusExpired {
		t.Fatalf("status = %s, want EXPIRED", a.Status)
	}
	if _, ok := a.Responses["q2"]; ok {
		t.Fatalf("late response must not be recorded")
	}
	if a.Score == nil || *a.Score != 10 {
		t.Fatalf("expired attempt graded on recorded responses: score = %v", a.Score)
	}
	if !a.SubmittedAt.Equal(t0.Add(30*time.Minute)) || *a.TimeSpentSeconds != 1800 {
		t.Fatalf("submitted_at = %v spent = %v", a.SubmittedAt, *a.TimeSpentSeconds)
	}

	if err := a.Submit(t0.Add(32 * time.Minute)); !errors.Is(err, quiz.ErrAttemptNotActive) {
		t.Fatalf("expected ErrAttemptNotActive on later submit, got %v", err)
	}
}

func TestSubmit(t *testing.T) {
	t.Run("in time", func(t *testing.T) {
		a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
		_ = a.RecordResponse("q1", []string{"6"}, t0.Add(time.Minute))
		_ = a.RecordResponse("q2", []string{"1", "3"}, t0.Add(2*time.Minute))
		_ = a.RecordResponse("q3", []string{"t"}, t0.Add(3*time.Minute))
		a = finished(t, a, t0.Add(20*time.Minute))

		if a.Status != attempt.StatusSubmitted || !a.SubmittedAt.Equal(t0.Add(20*time.Minute)) {
			t.Fatalf("unexpected terminal state: %s at %v", a.Status, a.SubmittedAt)
		}
		if *a.TimeSpentSeconds != 1200 || *a.Score != 25 {
			t.Fatalf("spent=%v score=%v", *a.TimeSpentSeconds, *a.Score)
		}
		if *a.IsPassed != true {
			t.Fatalf("25/30 should pass")
		}
	})
	t.Run("at the deadline is still submitted", func(t *testing.T) {
		a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
		a = finished(t, a, t0.Add(30*time.Minute))
		if a.Status != attempt.StatusSubmitted {
			t.Fatalf("status = %s", a.Status)
		}
	})
	t.Run("late becomes expired", func(t *testing.T) {
		a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
		if err := a.Submit(t0.Add(45 * time.Minute)); err != nil {
			t.Fatalf("late submit: %v", err)
		}
		if a.Status != attempt.StatusExpired || !a.SubmittedAt.Equal(t0.Add(30*time.Minute)) {
			t.Fatalf("status=%s submitted_at=%v", a.Status, a.SubmittedAt)
		}
	})
	t.Run("twice", func(t *testing.T) {
		a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
		a = finished(t, a, t0.Add(time.Minute))
		score := *a.Score
		if err := a.Submit(t0.Add(2 * time.Minute)); !errors.Is(err, quiz.ErrAttemptNotActive) {
			t.Fatalf("expected ErrAttemptNotActive, got %v", err)
		}
		if *a.Score != score || !a.SubmittedAt.Equal(t0.Add(time.Minute)) {
			t.Fatalf("second submit changed the attempt")
		}
	})
	t.Run("untimed never expires", func(t *testing.T) {
		a := mustStart(t, quiztest.Untimed(), nil, "att-1", t0)
		if a.Remaining(t0) != nil {
			t.Fatalf("untimed attempt has no remaining time")
		}
		a = finished(t, a, t0.Add(72*time.Hour))
		if a.Status != attempt.StatusSubmitted {
			t.Fatalf("status = %s", a.Status)
		}
	})
}

func TestExpireIfOverdue(t *testing.T) {
	a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
	if ok, err := a.ExpireIfOverdue(t0.Add(29 * time.Minute)); ok || err != nil {
		t.Fatalf("not yet overdue: ok=%v err=%v", ok, err)
	}
	if r := a.Remaining(t0.Add(29 * time.Minute)); r == nil || *r != time.Minute {
		t.Fatalf("remaining = %v, want 1m", r)
	}
	if ok, err := a.ExpireIfOverdue(t0.Add(31 * time.Minute)); !ok || err != nil {
		t.Fatalf("overdue: ok=%v err=%v", ok, err)
	}
	if a.Status != attempt.StatusExpired {
		t.Fatalf("status = %s", a.Status)
	}
	if ok, _ := a.ExpireIfOverdue(t0.Add(40 * time.Minute)); ok {
		t.Fatalf("terminal attempt expired twice")
	}
}

func TestApplyManualGrades(t *testing.T) {
	a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
	_ = a.RecordTextResponse("q4", "answer", t0.Add(time.Minute))

	five := 5.0
	if err := a.ApplyManualGrades(nil); !errors.Is(err, quiz.ErrAttemptNotActive) {
		t.Fatalf("expected ErrAttemptNotActive before submit, got %v", err)
	}
	a = finished(t, a, t0.Add(2*time.Minute))
	if err := a.ApplyManualGrades(map[string]grading.ManualGrade{"q4": {Points: &five}}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	if *a.Score != 5 {
		t.Fatalf("score = %v, want 5", *a.Score)
	}
}

func TestForStudentHidesKeyWhileRunning(t *testing.T) {
	a := mustStart(t, quiztest.Sample(), nil, "att-1", t0)
	view := a.ForStudent()
	for _, q := range view.Quiz.Questions {
		for _, ans := range q.Answers {
			if ans.IsCorrect {
				t.Fatalf("answer key visible during attempt")
			}
		}
	}
	a = finished(t, a, t0.Add(time.Minute))
	if !a.ForStudent().Quiz.Questions[0].Answers[1].IsCorrect {
		t.Fatalf("answer key should be visible after submission")
	}
}
