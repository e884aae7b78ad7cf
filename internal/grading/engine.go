package grading

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Outcome classifies a single question's result for reporting.
type Outcome string

const (
	OutcomeCorrect       Outcome = "correct"
	OutcomeIncorrect     Outcome = "incorrect"
	OutcomeUnanswered    Outcome = "unanswered"
	OutcomePendingReview Outcome = "pending_review"
	OutcomeGraded        Outcome = "graded"
)

// Submission is the raw material a student recorded: selected answer ids for
// choice questions and free text for manually graded ones.
type Submission struct {
	Selections map[string][]string
	Texts      map[string]string
}

// AnswerResult is the per-question outcome. IsCorrect is nil while a
// manually graded question awaits review.
type AnswerResult struct {
	QuestionID   string  `json:"question_id"`
	IsCorrect    *bool   `json:"is_correct"`
	PointsEarned float64 `json:"points_earned"`
	MaxPoints    float64 `json:"max_points"`
	Outcome      Outcome `json:"outcome"`
	Comment      string  `json:"comment,omitempty"`
}

// Result is the aggregate over all questions of a quiz.
type Result struct {
	PerQuestion []AnswerResult `json:"per_question"`
	TotalScore  float64        `json:"total_score"`
	Percentage  float64        `json:"percentage"`
	IsPassed    bool           `json:"is_passed"`
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q quiz.Question, sub Submission) AnswerResult
}

// Grader routes each question type to its Strategy.
type Grader struct {
	strategies map[quiz.QuestionType]Strategy
}

// NewGrader installs the built-in strategies.
func NewGrader() *Grader {
	return &Grader{
		strategies: map[quiz.QuestionType]Strategy{
			quiz.SingleChoice:   singleChoiceStrategy{},
			quiz.TrueFalse:      singleChoiceStrategy{},
			quiz.MultipleChoice: multipleChoiceStrategy{},
			quiz.ShortAnswer:    manualStrategy{},
			quiz.Essay:          manualStrategy{},
		},
	}
}

var defaultGrader = NewGrader()

// Score grades sub against q with the default grader.
func Score(q quiz.Quiz, sub Submission) (Result, error) {
	return defaultGrader.Score(q, sub)
}

// Score grades every question of q, in OrderIndex order, and aggregates.
func (g *Grader) Score(q quiz.Quiz, sub Submission) (Result, error) {
	if err := quiz.Validate(q); err != nil {
		return Result{}, err
	}
	questions := q.SortedQuestions()
	per := make([]AnswerResult, 0, len(questions))
	for _, qq := range questions {
		s, ok := g.strategies[qq.Type]
		if !ok {
			return Result{}, fmt.Errorf("%w: no grading strategy for %q", quiz.ErrInvalidQuizDefinition, qq.Type)
		}
		per = append(per, s.Grade(qq, sub))
	}
	return aggregate(q, per)
}

// aggregate sums points and derives percentage and pass. The percentage is
// not rounded.
func aggregate(q quiz.Quiz, per []AnswerResult) (Result, error) {
	total := q.TotalPoints()
	if total <= 0 {
		return Result{}, fmt.Errorf("%w: total points is zero", quiz.ErrInvalidQuizDefinition)
	}
	res := Result{PerQuestion: per}
	for _, r := range per {
		res.TotalScore += r.PointsEarned
	}
	res.Percentage = 100 * res.TotalScore / total
	res.IsPassed = res.Percentage >= q.PassingPercentage
	return res, nil
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q quiz.Question, sub Submission) AnswerResult {
	res := AnswerResult{QuestionID: q.ID, MaxPoints: q.Points}
	selected := distinct(sub.Selections[q.ID])
	if len(selected) == 0 {
		return unanswered(res)
	}
	correct := q.CorrectAnswerIDs()
	ok := len(selected) == 1 && len(correct) == 1 && selected[0] == correct[0]
	return judged(res, ok, q.Points)
}

type multipleChoiceStrategy struct{}

// Grade awards full points only for an exact match of the correct set.
func (multipleChoiceStrategy) Grade(q quiz.Question, sub Submission) AnswerResult {
	res := AnswerResult{QuestionID: q.ID, MaxPoints: q.Points}
	selected := distinct(sub.Selections[q.ID])
	if len(selected) == 0 {
		return unanswered(res)
	}
	return judged(res, setEqual(toSet(selected), toSet(q.CorrectAnswerIDs())), q.Points)
}

type manualStrategy struct{}

func (manualStrategy) Grade(q quiz.Question, sub Submission) AnswerResult {
	res := AnswerResult{QuestionID: q.ID, MaxPoints: q.Points}
	if strings.TrimSpace(sub.Texts[q.ID]) == "" {
		return unanswered(res)
	}
	res.Outcome = OutcomePendingReview
	return res
}

// helpers

func unanswered(res AnswerResult) AnswerResult {
	f := false
	res.IsCorrect = &f
	res.Outcome = OutcomeUnanswered
	return res
}

func judged(res AnswerResult, ok bool, points float64) AnswerResult {
	res.IsCorrect = &ok
	if ok {
		res.PointsEarned = points
		res.Outcome = OutcomeCorrect
	} else {
		res.Outcome = OutcomeIncorrect
	}
	return res
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
