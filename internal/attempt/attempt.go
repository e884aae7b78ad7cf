// Package attempt is the state machine for one student's try at a quiz.
//
// An attempt is IN_PROGRESS until it is submitted or found past its deadline,
// then SUBMITTED or EXPIRED for good. Every operation takes the current time
// as a parameter; expiry is detected lazily by whichever call comes first.
//
// An Attempt value is not safe for concurrent use. Callers serialize
// operations per attempt (see internal/assessment).
package attempt

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/ordering"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusSubmitted  Status = "SUBMITTED"
	StatusExpired    Status = "EXPIRED"
)

func (s Status) Terminal() bool { return s == StatusSubmitted || s == StatusExpired }

type Attempt struct {
	ID            string `json:"id"`
	QuizID        string `json:"quiz_id"`
	StudentID     string `json:"student_id"`
	AttemptNumber int    `json:"attempt_number"`

	// Quiz is the definition the attempt was started under. Later edits to
	// the live quiz never change how this attempt is ordered or graded.
	Quiz quiz.Quiz `json:"quiz"`

	QuestionOrder         []string            `json:"question_order"`
	AnswerOrderByQuestion map[string][]string `json:"answer_order_by_question"`

	Responses       map[string][]string `json:"responses"`
	TextResponses   map[string]string   `json:"text_responses,omitempty"`
	QuestionSeconds map[string]float64  `json:"question_seconds,omitempty"`
	LastActivityAt  time.Time           `json:"last_activity_at"`

	Status           Status     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	TimeSpentSeconds *int64     `json:"time_spent_seconds,omitempty"`

	Score      *float64               `json:"score,omitempty"`
	Percentage *float64               `json:"percentage,omitempty"`
	IsPassed   *bool                  `json:"is_passed,omitempty"`
	Results    []grading.AnswerResult `json:"results,omitempty"`
}

// Start admits a student to a new attempt. prior holds every earlier attempt
// of this student on this quiz, in any status. An empty id gets a fresh UUID;
// the id also seeds the attempt's question and answer order.
func Start(q quiz.Quiz, studentID string, prior []Attempt, id string, now time.Time) (Attempt, error) {
	count, inProgress := 0, 0
	for _, p := range prior {
		if p.QuizID != q.ID || p.StudentID != studentID {
			continue
		}
		count++
		if p.Status == StatusInProgress {
			inProgress++
		}
	}

	if q.MaxAttempts != quiz.UnlimitedAttempts && count >= q.MaxAttempts {
		return Attempt{}, fmt.Errorf("%w: %d of %d attempts used", quiz.ErrAttemptLimitExceeded, count, q.MaxAttempts)
	}
	if !q.IsActive {
		return Attempt{}, fmt.Errorf("%w: quiz %s is not active", quiz.ErrQuizNotAvailable, q.ID)
	}
	if !q.AvailabilityWindow.Contains(now) {
		return Attempt{}, fmt.Errorf("%w: quiz %s is outside its availability window", quiz.ErrQuizNotAvailable, q.ID)
	}
	switch {
	case inProgress == 1:
		return Attempt{}, fmt.Errorf("%w: %w", quiz.ErrQuizNotAvailable, quiz.ErrAttemptAlreadyInProgress)
	case inProgress > 1:
		return Attempt{}, fmt.Errorf("%w: %d attempts in progress for student %s", quiz.ErrAttemptAlreadyInProgress, inProgress, studentID)
	}

	if id == "" {
		id = uuid.NewString()
	}
	snapshot := q.Clone()
	order, err := ordering.OrderFor(snapshot, id)
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{
		ID:                    id,
		QuizID:                q.ID,
		StudentID:             studentID,
		AttemptNumber:         count + 1,
		Quiz:                  snapshot,
		QuestionOrder:         order.QuestionOrder,
		AnswerOrderByQuestion: order.AnswerOrderByQuestion,
		Responses:             map[string][]string{},
		TextResponses:         map[string]string{},
		QuestionSeconds:       map[string]float64{},
		LastActivityAt:        now,
		Status:                StatusInProgress,
		StartedAt:             now,
	}, nil
}

// Deadline returns when the attempt runs out of time, or false when untimed.
func (a *Attempt) Deadline() (time.Time, bool) {
	limit, ok := a.Quiz.TimeLimit()
	if !ok {
		return time.Time{}, false
	}
	return a.StartedAt.Add(limit), true
}

// Overdue reports whether an in-progress attempt is past its deadline at now.
func (a *Attempt) Overdue(now time.Time) bool {
	if a.Status != StatusInProgress {
		return false
	}
	deadline, ok := a.Deadline()
	return ok && now.After(deadline)
}

// Remaining is the time left at now, floored at zero; nil when untimed.
func (a *Attempt) Remaining(now time.Time) *time.Duration {
	deadline, ok := a.Deadline()
	if !ok {
		return nil
	}
	d := deadline.Sub(now)
	if d < 0 || a.Status.Terminal() {
		d = 0
	}
	return &d
}

// RecordResponse stores the selected answers for one question, replacing any
// earlier selection. An empty selection clears the question. Correctness is
// never computed here.
func (a *Attempt) RecordResponse(questionID string, selected []string, now time.Time) error {
	qq, err := a.beginWrite(questionID, now)
	if err != nil {
		return err
	}
	if !qq.Type.HasChoices() && len(selected) > 0 {
		return fmt.Errorf("%w: %s question %s takes a text response", quiz.ErrUnknownQuestion, qq.Type, qq.ID)
	}
	ids := make([]string, 0, len(selected))
	seen := map[string]bool{}
	for _, id := range selected {
		if !qq.HasAnswer(id) {
			return fmt.Errorf("%w: answer %s does not belong to question %s", quiz.ErrUnknownQuestion, id, qq.ID)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	a.touch(qq.ID, now)
	if len(ids) == 0 {
		delete(a.Responses, qq.ID)
		return nil
	}
	a.Responses[qq.ID] = ids
	return nil
}

// RecordTextResponse stores free text for a SHORT_ANSWER or ESSAY question,
// replacing any earlier text. Empty text clears the question.
func (a *Attempt) RecordTextResponse(questionID, text string, now time.Time) error {
	qq, err := a.beginWrite(questionID, now)
	if err != nil {
		return err
	}
	if !qq.Type.ManuallyGraded() {
		return fmt.Errorf("%w: %s question %s takes answer selections", quiz.ErrUnknownQuestion, qq.Type, qq.ID)
	}
	a.touch(qq.ID, now)
	if text == "" {
		delete(a.TextResponses, qq.ID)
		return nil
	}
	a.TextResponses[qq.ID] = text
	return nil
}

// Submit finalizes the attempt and scores it. Past the deadline the attempt
// becomes EXPIRED with SubmittedAt pinned to the deadline; scoring is the same.
func (a *Attempt) Submit(now time.Time) error {
	if a.Status.Terminal() {
		return fmt.Errorf("%w: attempt %s is %s", quiz.ErrAttemptNotActive, a.ID, a.Status)
	}
	if deadline, ok := a.Deadline(); ok && now.After(deadline) {
		return a.finalize(StatusExpired, deadline)
	}
	return a.finalize(StatusSubmitted, now)
}

// ExpireIfOverdue finalizes an overdue attempt as EXPIRED and reports
// whether it did.
func (a *Attempt) ExpireIfOverdue(now time.Time) (bool, error) {
	if !a.Overdue(now) {
		return false, nil
	}
	deadline, _ := a.Deadline()
	if err := a.finalize(StatusExpired, deadline); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyManualGrades grades SHORT_ANSWER/ESSAY questions of a terminal attempt
// and recomputes its score.
func (a *Attempt) ApplyManualGrades(grades map[string]grading.ManualGrade) error {
	if !a.Status.Terminal() {
		return fmt.Errorf("%w: attempt %s is still in progress", quiz.ErrAttemptNotActive, a.ID)
	}
	res, err := grading.ApplyManualGrades(a.Quiz, a.Results, grades)
	if err != nil {
		return err
	}
	a.setResult(res)
	return nil
}

// beginWrite runs the checks shared by the response recorders, expiring the
// attempt when it is found past its deadline.
func (a *Attempt) beginWrite(questionID string, now time.Time) (quiz.Question, error) {
	if a.Status.Terminal() {
		return quiz.Question{}, fmt.Errorf("%w: attempt %s is %s", quiz.ErrAttemptNotActive, a.ID, a.Status)
	}
	expired, err := a.ExpireIfOverdue(now)
	if err != nil {
		return quiz.Question{}, err
	}
	if expired {
		return quiz.Question{}, fmt.Errorf("%w: attempt %s ran out of time", quiz.ErrAttemptExpired, a.ID)
	}
	qq, ok := a.Quiz.Question(questionID)
	if !ok {
		return quiz.Question{}, fmt.Errorf("%w: %s", quiz.ErrUnknownQuestion, questionID)
	}
	return qq, nil
}

// touch charges the time since the previous activity to questionID.
func (a *Attempt) touch(questionID string, now time.Time) {
	if a.QuestionSeconds == nil {
		a.QuestionSeconds = map[string]float64{}
	}
	if a.Responses == nil {
		a.Responses = map[string][]string{}
	}
	if a.TextResponses == nil {
		a.TextResponses = map[string]string{}
	}
	if d := now.Sub(a.LastActivityAt); d > 0 {
		a.QuestionSeconds[questionID] += d.Seconds()
	}
	if now.After(a.LastActivityAt) {
		a.LastActivityAt = now
	}
}

// finalize scores first so a scoring failure leaves the attempt untouched.
func (a *Attempt) finalize(status Status, at time.Time) error {
	res, err := grading.Score(a.Quiz, grading.Submission{Selections: a.Responses, Texts: a.TextResponses})
	if err != nil {
		return err
	}
	spent := int64(at.Sub(a.StartedAt) / time.Second)
	if spent < 0 {
		spent = 0
	}
	a.Status = status
	a.SubmittedAt = &at
	a.TimeSpentSeconds = &spent
	a.setResult(res)
	return nil
}

func (a *Attempt) setResult(res grading.Result) {
	score, pct, passed := res.TotalScore, res.Percentage, res.IsPassed
	a.Score = &score
	a.Percentage = &pct
	a.IsPassed = &passed
	a.Results = res.PerQuestion
}

// Clone returns a deep copy.
func (a Attempt) Clone() Attempt {
	out := a
	out.Quiz = a.Quiz.Clone()
	out.QuestionOrder = append([]string(nil), a.QuestionOrder...)
	out.AnswerOrderByQuestion = cloneLists(a.AnswerOrderByQuestion)
	out.Responses = cloneLists(a.Responses)
	if a.TextResponses != nil {
		out.TextResponses = make(map[string]string, len(a.TextResponses))
		for k, v := range a.TextResponses {
			out.TextResponses[k] = v
		}
	}
	if a.QuestionSeconds != nil {
		out.QuestionSeconds = make(map[string]float64, len(a.QuestionSeconds))
		for k, v := range a.QuestionSeconds {
			out.QuestionSeconds[k] = v
		}
	}
	out.Results = append([]grading.AnswerResult(nil), a.Results...)
	return out
}

// ForStudent hides the answer key while the attempt is still running.
func (a Attempt) ForStudent() Attempt {
	out := a.Clone()
	if !a.Status.Terminal() {
		out.Quiz = a.Quiz.StudentView()
	}
	return out
}

func cloneLists(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}
