package grading

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Rubric breaks a manually graded question into criteria. Max caps the sum
// when set; the question's own points cap it regardless.
type Rubric struct {
	Criteria []Criterion `json:"criteria"`
	Max      float64     `json:"max_points,omitempty"`
}

type Criterion struct {
	Key       string  `json:"key"`
	Desc      string  `json:"desc,omitempty"`
	MaxPoints float64 `json:"max_points"`
}

// ScoreRubric sums the points awarded per criterion, each clamped to
// [0, MaxPoints], and returns a "key a/b" breakdown for the result comment.
// Awards for criteria the rubric does not define are rejected.
func ScoreRubric(r Rubric, awarded map[string]float64) (float64, string, error) {
	known := make(map[string]bool, len(r.Criteria))
	for _, c := range r.Criteria {
		known[c.Key] = true
	}
	for k := range awarded {
		if !known[k] {
			return 0, "", fmt.Errorf("%w: rubric has no criterion %q", quiz.ErrManualGradeRejected, k)
		}
	}

	total := 0.0
	parts := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		v := clamp(awarded[c.Key], 0, c.MaxPoints)
		total += v
		parts = append(parts, fmt.Sprintf("%s %g/%g", c.Key, v, c.MaxPoints))
	}
	if r.Max > 0 && total > r.Max {
		total = r.Max
	}
	return total, strings.Join(parts, ", "), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
