package grading_test

import (
	"errors"
	"math"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/quiz/quiztest"
)

func resultFor(t *testing.T, res grading.Result, qid string) grading.AnswerResult {
	t.Helper()
	for _, r := range res.PerQuestion {
		if r.QuestionID == qid {
			return r
		}
	}
	t.Fatalf("no result for %s", qid)
	return grading.AnswerResult{}
}

func TestScore_SingleChoice(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		earned   float64
		outcome  grading.Outcome
	}{
		{"correct", []string{"6"}, 10, grading.OutcomeCorrect},
		{"correct plus extra", []string{"6", "7"}, 0, grading.OutcomeIncorrect},
		{"wrong", []string{"7"}, 0, grading.OutcomeIncorrect},
		{"empty selection", []string{}, 0, grading.OutcomeUnanswered},
		{"duplicate of correct", []string{"6", "6"}, 10, grading.OutcomeCorrect},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := grading.Score(quiztest.Sample(), grading.Submission{
				Selections: map[string][]string{"q1": tc.selected},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r := resultFor(t, res, "q1")
			if r.PointsEarned != tc.earned || r.Outcome != tc.outcome {
				t.Fatalf("got %v pts (%s), want %v (%s)", r.PointsEarned, r.Outcome, tc.earned, tc.outcome)
			}
			if r.IsCorrect == nil || *r.IsCorrect != (tc.earned > 0) {
				t.Fatalf("is_correct = %v", r.IsCorrect)
			}
		})
	}
}

func TestScore_MultipleChoiceAllOrNothing(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		earned   float64
	}{
		{"exact set", []string{"1", "3"}, 10},
		{"exact set reordered", []string{"3", "1"}, 10},
		{"subset", []string{"1"}, 0},
		{"superset", []string{"1", "2", "3"}, 0},
		{"wrong only", []string{"2"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := grading.Score(quiztest.Sample(), grading.Submission{
				Selections: map[string][]string{"q2": tc.selected},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := resultFor(t, res, "q2").PointsEarned; got != tc.earned {
				t.Fatalf("earned %v, want %v", got, tc.earned)
			}
		})
	}
}

func TestScore_ManualAndUnanswered(t *testing.T) {
	res, err := grading.Score(quiztest.Sample(), grading.Submission{
		Texts: map[string]string{"q4": "Two fractions naming the same amount."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	essay := resultFor(t, res, "q4")
	if essay.IsCorrect != nil || essay.PointsEarned != 0 || essay.Outcome != grading.OutcomePendingReview {
		t.Fatalf("essay result = %+v", essay)
	}
	tf := resultFor(t, res, "q3")
	if tf.Outcome != grading.OutcomeUnanswered || tf.PointsEarned != 0 {
		t.Fatalf("unanswered result = %+v", tf)
	}
	if !grading.PendingReview(res.PerQuestion) {
		t.Fatalf("expected pending review")
	}
}

func TestScore_PassBoundary(t *testing.T) {
	fail, err := grading.Score(quiztest.Sample(), grading.Submission{
		Selections: map[string][]string{"q1": {"6"}, "q2": {"1", "3"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail.TotalScore != 20 {
		t.Fatalf("total = %v, want 20", fail.TotalScore)
	}
	if math.Abs(fail.Percentage-200.0/3) > 1e-9 || fail.IsPassed {
		t.Fatalf("20/30 -> %v passed=%v, want ~66.67 failing", fail.Percentage, fail.IsPassed)
	}

	// q3 4 pts, q4 6 pts: still 30 total; 20 auto points + 1 manual = 21.
	q := quiztest.Sample()
	q.Questions[2].Points = 4
	q.Questions[3].Points = 6
	res, err := grading.Score(q, grading.Submission{
		Selections: map[string][]string{"q1": {"6"}, "q2": {"1", "3"}},
		Texts:      map[string]string{"q4": "some text"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err = grading.ApplyManualGrades(q, res.PerQuestion, map[string]grading.ManualGrade{"q4": {Points: ptr(1)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalScore != 21 || res.Percentage != 70.0 || !res.IsPassed {
		t.Fatalf("21/30 -> total=%v pct=%v passed=%v, want 21, 70, true", res.TotalScore, res.Percentage, res.IsPassed)
	}
}

func TestScore_InvalidQuiz(t *testing.T) {
	q := quiztest.Sample()
	q.Questions = nil
	if _, err := grading.Score(q, grading.Submission{}); !errors.Is(err, quiz.ErrInvalidQuizDefinition) {
		t.Fatalf("expected ErrInvalidQuizDefinition, got %v", err)
	}
}

func TestApplyManualGrades(t *testing.T) {
	q := quiztest.Sample()
	base, err := grading.Score(q, grading.Submission{Texts: map[string]string{"q4": "answer"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("rejects auto-scored question", func(t *testing.T) {
		_, err := grading.ApplyManualGrades(q, base.PerQuestion, map[string]grading.ManualGrade{"q1": {Points: ptr(10)}})
		if !errors.Is(err, quiz.ErrManualGradeRejected) {
			t.Fatalf("expected ErrManualGradeRejected, got %v", err)
		}
	})
	t.Run("rejects unknown question", func(t *testing.T) {
		_, err := grading.ApplyManualGrades(q, base.PerQuestion, map[string]grading.ManualGrade{"nope": {Points: ptr(1)}})
		if !errors.Is(err, quiz.ErrManualGradeRejected) {
			t.Fatalf("expected ErrManualGradeRejected, got %v", err)
		}
	})
	t.Run("rejects unanswered question", func(t *testing.T) {
		for _, texts := range []map[string]string{nil, {"q4": "   "}} {
			blank, err := grading.Score(q, grading.Submission{Texts: texts})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := resultFor(t, blank, "q4").Outcome; got != grading.OutcomeUnanswered {
				t.Fatalf("blank essay outcome = %s", got)
			}
			_, err = grading.ApplyManualGrades(q, blank.PerQuestion, map[string]grading.ManualGrade{"q4": {Points: ptr(5)}})
			if !errors.Is(err, quiz.ErrManualGradeRejected) {
				t.Fatalf("texts %v: expected ErrManualGradeRejected, got %v", texts, err)
			}
		}
	})
	t.Run("clamps to question points", func(t *testing.T) {
		res, err := grading.ApplyManualGrades(q, base.PerQuestion, map[string]grading.ManualGrade{"q4": {Points: ptr(9)}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := resultFor(t, res, "q4").PointsEarned; got != 5 {
			t.Fatalf("earned %v, want 5", got)
		}
	})
	t.Run("rubric", func(t *testing.T) {
		res, err := grading.ApplyManualGrades(q, base.PerQuestion, map[string]grading.ManualGrade{
			"q4": {
				Rubric: &grading.Rubric{Criteria: []grading.Criterion{
					{Key: "idea", MaxPoints: 3},
					{Key: "example", MaxPoints: 2},
				}},
				Awarded: map[string]float64{"idea": 3, "example": 5},
				Comment: "clear",
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r := resultFor(t, res, "q4")
		if r.PointsEarned != 5 || r.Outcome != grading.OutcomeGraded || r.IsCorrect == nil || !*r.IsCorrect {
			t.Fatalf("graded essay = %+v", r)
		}
		if res.TotalScore != 5 {
			t.Fatalf("total = %v, want 5", res.TotalScore)
		}
		if r.Comment != "idea 3/3, example 2/2; clear" {
			t.Fatalf("comment = %q", r.Comment)
		}
		if base.PerQuestion[3].Outcome != grading.OutcomePendingReview {
			t.Fatalf("prior results were mutated")
		}
	})
	t.Run("rubric with unknown criterion", func(t *testing.T) {
		_, err := grading.ApplyManualGrades(q, base.PerQuestion, map[string]grading.ManualGrade{
			"q4": {
				Rubric:  &grading.Rubric{Criteria: []grading.Criterion{{Key: "idea", MaxPoints: 3}}},
				Awarded: map[string]float64{"idea": 1, "style": 2},
			},
		})
		if !errors.Is(err, quiz.ErrManualGradeRejected) {
			t.Fatalf("expected ErrManualGradeRejected, got %v", err)
		}
	})
}

func ptr(f float64) *float64 { return &f }
