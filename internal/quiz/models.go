package quiz

import (
	"sort"
	"time"
)

type Kind string

const (
	KindLessonQuiz Kind = "LESSON_QUIZ"
	KindCourseQuiz Kind = "COURSE_QUIZ"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
	Essay          QuestionType = "ESSAY"
)

// HasChoices reports whether questions of this type carry answers to select from.
func (t QuestionType) HasChoices() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse:
		return true
	}
	return false
}

// ManuallyGraded reports whether the type is graded outside the engine.
func (t QuestionType) ManuallyGraded() bool {
	return t == ShortAnswer || t == Essay
}

type ScoringMethod string

const (
	ScoreHighest ScoringMethod = "HIGHEST"
	ScoreLatest  ScoringMethod = "LATEST"
	ScoreAverage ScoringMethod = "AVERAGE"
)

// UnlimitedAttempts is the MaxAttempts value that disables the attempt cap.
const UnlimitedAttempts = -1

// Window bounds when a quiz may be started. Both ends are inclusive; a nil
// end is open.
type Window struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

func (w *Window) Contains(now time.Time) bool {
	if w == nil {
		return true
	}
	if w.Start != nil && now.Before(*w.Start) {
		return false
	}
	if w.End != nil && now.After(*w.End) {
		return false
	}
	return true
}

type Answer struct {
	ID         string `json:"id" validate:"required"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	OrderIndex int    `json:"order_index"`
}

type Question struct {
	ID          string       `json:"id" validate:"required"`
	Type        QuestionType `json:"type" validate:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE SHORT_ANSWER ESSAY"`
	Text        string       `json:"text"`
	OrderIndex  int          `json:"order_index"`
	Points      float64      `json:"points" validate:"gt=0"`
	Explanation string       `json:"explanation,omitempty"`
	Answers     []Answer     `json:"answers,omitempty" validate:"dive"`
}

// CorrectAnswerIDs returns the ids of the answers marked correct, in answer order.
func (q Question) CorrectAnswerIDs() []string {
	var out []string
	for _, a := range q.Answers {
		if a.IsCorrect {
			out = append(out, a.ID)
		}
	}
	return out
}

// HasAnswer reports whether id names one of the question's answers.
func (q Question) HasAnswer(id string) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// SortedAnswers returns the answers ordered by OrderIndex. Ties keep their
// declared position.
func (q Question) SortedAnswers() []Answer {
	out := append([]Answer(nil), q.Answers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

type Quiz struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title" validate:"required"`
	Description        string        `json:"description,omitempty"`
	Kind               Kind          `json:"kind" validate:"required,oneof=LESSON_QUIZ COURSE_QUIZ"`
	CourseID           string        `json:"course_id" validate:"required"`
	LessonID           string        `json:"lesson_id,omitempty"`
	Questions          []Question    `json:"questions" validate:"dive"`
	MaxAttempts        int           `json:"max_attempts" validate:"ne=0,gte=-1"`
	ScoringMethod      ScoringMethod `json:"scoring_method" validate:"required,oneof=HIGHEST LATEST AVERAGE"`
	PassingPercentage  float64       `json:"passing_percentage" validate:"gte=0,lte=100"`
	TimeLimitMinutes   *int          `json:"time_limit_minutes,omitempty" validate:"omitempty,gt=0"`
	IsActive           bool          `json:"is_active"`
	ShuffleQuestions   bool          `json:"shuffle_questions"`
	ShuffleAnswers     bool          `json:"shuffle_answers"`
	AvailabilityWindow *Window       `json:"availability_window,omitempty"`
}

// TotalPoints is the sum of all question points.
func (q Quiz) TotalPoints() float64 {
	total := 0.0
	for _, qq := range q.Questions {
		total += qq.Points
	}
	return total
}

// TimeLimit returns the attempt duration limit, or false for an untimed quiz.
func (q Quiz) TimeLimit() (time.Duration, bool) {
	if q.TimeLimitMinutes == nil {
		return 0, false
	}
	return time.Duration(*q.TimeLimitMinutes) * time.Minute, true
}

// Question looks up a question by id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}

// SortedQuestions returns the questions ordered by OrderIndex. Ties keep
// their declared position.
func (q Quiz) SortedQuestions() []Question {
	out := append([]Question(nil), q.Questions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

// Clone returns a deep copy so a snapshot never aliases the caller's slices.
func (q Quiz) Clone() Quiz {
	out := q
	if q.Questions != nil {
		out.Questions = make([]Question, len(q.Questions))
		for i, qq := range q.Questions {
			qq.Answers = append([]Answer(nil), qq.Answers...)
			out.Questions[i] = qq
		}
	}
	if q.TimeLimitMinutes != nil {
		v := *q.TimeLimitMinutes
		out.TimeLimitMinutes = &v
	}
	if q.AvailabilityWindow != nil {
		w := *q.AvailabilityWindow
		out.AvailabilityWindow = &w
	}
	return out
}

// StudentView hides answer keys and explanations so the quiz can be served
// to a student taking it.
func (q Quiz) StudentView() Quiz {
	out := q.Clone()
	for i := range out.Questions {
		out.Questions[i].Explanation = ""
		for j := range out.Questions[i].Answers {
			out.Questions[i].Answers[j].IsCorrect = false
		}
	}
	return out
}
