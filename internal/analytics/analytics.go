// Package analytics folds attempts into reporting views: quiz-wide
// statistics and a student's effective score under a scoring method.
package analytics

import (
	"fmt"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Bucket counts terminal attempts whose percentage falls in [From, To);
// the last bucket also includes 100.
type Bucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

type QuestionStats struct {
	QuestionID         string   `json:"question_id"`
	TotalAttempts      int      `json:"total_attempts"`
	CorrectAttempts    int      `json:"correct_attempts"`
	IncorrectAttempts  int      `json:"incorrect_attempts"`
	UnansweredAttempts int      `json:"unanswered_attempts"`
	PendingReview      int      `json:"pending_review"`
	CorrectPercentage  float64  `json:"correct_percentage"`
	AverageTimeSeconds *float64 `json:"average_time_seconds,omitempty"`
}

// QuizAnalytics summarizes a snapshot of attempts for one quiz. Score fields
// are nil when there is no terminal attempt.
type QuizAnalytics struct {
	TotalAttempts           int             `json:"total_attempts"`
	TotalStudents           int             `json:"total_students"`
	CompletedAttempts       int             `json:"completed_attempts"`
	ExpiredAttempts         int             `json:"expired_attempts"`
	InProgressAttempts      int             `json:"in_progress_attempts"`
	AverageScore            *float64        `json:"average_score,omitempty"`
	HighestScore            *float64        `json:"highest_score,omitempty"`
	LowestScore             *float64        `json:"lowest_score,omitempty"`
	PassRate                float64         `json:"pass_rate"`
	AverageTimeSpentMinutes *float64        `json:"average_time_spent_minutes,omitempty"`
	ScoreDistribution       []Bucket        `json:"score_distribution"`
	Questions               []QuestionStats `json:"questions"`
}

type questionAcc struct {
	stats     QuestionStats
	timeSum   float64
	timeCount int
}

// AggregateQuiz computes statistics over the terminal attempts in attempts.
// In-progress attempts are only counted in InProgressAttempts.
func AggregateQuiz(attempts []attempt.Attempt) QuizAnalytics {
	out := QuizAnalytics{ScoreDistribution: newBuckets()}
	students := map[string]struct{}{}
	questions := map[string]*questionAcc{}
	var qOrder []string

	var pctSum, timeSum float64
	var pctCount, timeCount, passedCompleted int

	for _, a := range attempts {
		if !a.Status.Terminal() {
			if a.Status == attempt.StatusInProgress {
				out.InProgressAttempts++
			}
			continue
		}
		out.TotalAttempts++
		students[a.StudentID] = struct{}{}
		switch a.Status {
		case attempt.StatusSubmitted:
			out.CompletedAttempts++
			if a.IsPassed != nil && *a.IsPassed {
				passedCompleted++
			}
		case attempt.StatusExpired:
			out.ExpiredAttempts++
		}

		if a.Percentage != nil {
			p := *a.Percentage
			pctSum += p
			pctCount++
			if out.HighestScore == nil || p > *out.HighestScore {
				out.HighestScore = ptr(p)
			}
			if out.LowestScore == nil || p < *out.LowestScore {
				out.LowestScore = ptr(p)
			}
			out.ScoreDistribution[bucketIndex(p)].Count++
		}
		if a.TimeSpentSeconds != nil {
			timeSum += float64(*a.TimeSpentSeconds) / 60
			timeCount++
		}

		for _, r := range a.Results {
			acc, ok := questions[r.QuestionID]
			if !ok {
				acc = &questionAcc{stats: QuestionStats{QuestionID: r.QuestionID}}
				questions[r.QuestionID] = acc
				qOrder = append(qOrder, r.QuestionID)
			}
			addResult(acc, r, a.QuestionSeconds)
		}
	}

	out.TotalStudents = len(students)
	if pctCount > 0 {
		out.AverageScore = ptr(pctSum / float64(pctCount))
	}
	if timeCount > 0 {
		out.AverageTimeSpentMinutes = ptr(timeSum / float64(timeCount))
	}
	if out.CompletedAttempts > 0 {
		out.PassRate = 100 * float64(passedCompleted) / float64(out.CompletedAttempts)
	}

	out.Questions = make([]QuestionStats, 0, len(qOrder))
	for _, qid := range qOrder {
		acc := questions[qid]
		if acc.stats.TotalAttempts > 0 {
			acc.stats.CorrectPercentage = 100 * float64(acc.stats.CorrectAttempts) / float64(acc.stats.TotalAttempts)
		}
		if acc.timeCount > 0 {
			acc.stats.AverageTimeSeconds = ptr(acc.timeSum / float64(acc.timeCount))
		}
		out.Questions = append(out.Questions, acc.stats)
	}
	return out
}

// addResult folds one question result into the accumulator. Only answered
// questions count toward TotalAttempts.
func addResult(acc *questionAcc, r grading.AnswerResult, seconds map[string]float64) {
	if r.Outcome == grading.OutcomeUnanswered {
		acc.stats.UnansweredAttempts++
		return
	}
	acc.stats.TotalAttempts++
	switch {
	case r.Outcome == grading.OutcomePendingReview:
		acc.stats.PendingReview++
	case r.IsCorrect != nil && *r.IsCorrect:
		acc.stats.CorrectAttempts++
	default:
		acc.stats.IncorrectAttempts++
	}
	if s, ok := seconds[r.QuestionID]; ok {
		acc.timeSum += s
		acc.timeCount++
	}
}

func newBuckets() []Bucket {
	out := make([]Bucket, 10)
	for i := range out {
		out[i] = Bucket{From: float64(i * 10), To: float64(i*10 + 10)}
	}
	return out
}

func bucketIndex(p float64) int {
	i := int(p / 10)
	if i < 0 {
		return 0
	}
	if i > 9 {
		return 9
	}
	return i
}

// Effective is a student's reported result on a quiz. SourceAttemptID is
// empty for AVERAGE, which has no single source.
type Effective struct {
	Method             quiz.ScoringMethod `json:"method"`
	Percentage         float64            `json:"percentage"`
	IsPassed           bool               `json:"is_passed"`
	SourceAttemptID    string             `json:"source_attempt_id,omitempty"`
	AttemptsConsidered int                `json:"attempts_considered"`
}

// EffectiveScore reduces one student's terminal attempts on a quiz to the
// reported score. It fails with quiz.ErrNoAttempts when none are terminal.
func EffectiveScore(attempts []attempt.Attempt, method quiz.ScoringMethod, passingPercentage float64) (Effective, error) {
	var done []attempt.Attempt
	for _, a := range attempts {
		if a.Status.Terminal() && a.Percentage != nil && a.SubmittedAt != nil {
			done = append(done, a)
		}
	}
	if len(done) == 0 {
		return Effective{}, quiz.ErrNoAttempts
	}

	out := Effective{Method: method, AttemptsConsidered: len(done)}
	switch method {
	case quiz.ScoreHighest:
		best := done[0]
		for _, a := range done[1:] {
			if *a.Percentage > *best.Percentage ||
				(*a.Percentage == *best.Percentage && a.SubmittedAt.Before(*best.SubmittedAt)) {
				best = a
			}
		}
		out.Percentage, out.SourceAttemptID = *best.Percentage, best.ID
	case quiz.ScoreLatest:
		last := done[0]
		for _, a := range done[1:] {
			if a.SubmittedAt.After(*last.SubmittedAt) ||
				(a.SubmittedAt.Equal(*last.SubmittedAt) && a.AttemptNumber > last.AttemptNumber) {
				last = a
			}
		}
		out.Percentage, out.SourceAttemptID = *last.Percentage, last.ID
	case quiz.ScoreAverage:
		sum := 0.0
		for _, a := range done {
			sum += *a.Percentage
		}
		out.Percentage = sum / float64(len(done))
	default:
		return Effective{}, fmt.Errorf("%w: unknown scoring method %q", quiz.ErrInvalidQuizDefinition, method)
	}
	// the current pass mark decides, whatever the attempt was graded under
	out.IsPassed = out.Percentage >= passingPercentage
	return out, nil
}

func ptr(f float64) *float64 { return &f }
