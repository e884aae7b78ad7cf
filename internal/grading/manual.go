package grading

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ManualGrade is a reviewer's verdict on a SHORT_ANSWER or ESSAY question.
// Either Points or Rubric (with Awarded) must be given; a rubric wins.
type ManualGrade struct {
	Points  *float64           `json:"points,omitempty"`
	Rubric  *Rubric            `json:"rubric,omitempty"`
	Awarded map[string]float64 `json:"awarded,omitempty"`
	Comment string             `json:"comment,omitempty"`
}

// ApplyManualGrades overwrites pointsEarned for manually graded questions and
// recomputes the aggregate with the same formula as Score. Points are clamped
// to [0, question points]. Unanswered questions stay at zero and cannot be
// graded. Nothing is applied if any grade is rejected.
func ApplyManualGrades(q quiz.Quiz, prior []AnswerResult, grades map[string]ManualGrade) (Result, error) {
	per := append([]AnswerResult(nil), prior...)
	index := make(map[string]int, len(per))
	for i, r := range per {
		index[r.QuestionID] = i
	}

	for qid, g := range grades {
		qq, ok := q.Question(qid)
		if !ok {
			return Result{}, fmt.Errorf("%w: unknown question %s", quiz.ErrManualGradeRejected, qid)
		}
		if !qq.Type.ManuallyGraded() {
			return Result{}, fmt.Errorf("%w: %s question %s is auto-scored", quiz.ErrManualGradeRejected, qq.Type, qid)
		}
		i, ok := index[qid]
		if !ok {
			return Result{}, fmt.Errorf("%w: no result recorded for question %s", quiz.ErrManualGradeRejected, qid)
		}
		if per[i].Outcome == OutcomeUnanswered {
			return Result{}, fmt.Errorf("%w: question %s was not answered", quiz.ErrManualGradeRejected, qid)
		}

		var (
			points    float64
			breakdown string
			err       error
		)
		switch {
		case g.Rubric != nil:
			if points, breakdown, err = ScoreRubric(*g.Rubric, g.Awarded); err != nil {
				return Result{}, fmt.Errorf("question %s: %w", qid, err)
			}
		case g.Points != nil:
			points = *g.Points
		default:
			return Result{}, fmt.Errorf("%w: question %s needs points or a rubric", quiz.ErrManualGradeRejected, qid)
		}
		points = clamp(points, 0, qq.Points)

		full := points >= qq.Points
		r := per[i]
		r.PointsEarned = points
		r.MaxPoints = qq.Points
		r.IsCorrect = &full
		r.Outcome = OutcomeGraded
		var notes []string
		for _, n := range []string{breakdown, strings.TrimSpace(g.Comment)} {
			if n != "" {
				notes = append(notes, n)
			}
		}
		r.Comment = strings.Join(notes, "; ")
		per[i] = r
	}
	return aggregate(q, per)
}

// PendingReview reports whether any result still awaits manual grading.
func PendingReview(results []AnswerResult) bool {
	for _, r := range results {
		if r.Outcome == OutcomePendingReview {
			return true
		}
	}
	return false
}
