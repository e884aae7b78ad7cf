package assessment

import (
	"context"
	"fmt"
	"log"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/ordering"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ReviewQuestion is one question as the student saw it, answers in their
// displayed order, with the key and the graded result.
type ReviewQuestion struct {
	Question quiz.Question         `json:"question"`
	Selected []string              `json:"selected,omitempty"`
	Text     string                `json:"text,omitempty"`
	Seconds  float64               `json:"seconds,omitempty"`
	Result   *grading.AnswerResult `json:"result,omitempty"`
}

type Review struct {
	AttemptID  string           `json:"attempt_id"`
	QuizID     string           `json:"quiz_id"`
	StudentID  string           `json:"student_id"`
	Status     attempt.Status   `json:"status"`
	Score      *float64         `json:"score,omitempty"`
	Percentage *float64         `json:"percentage,omitempty"`
	IsPassed   *bool            `json:"is_passed,omitempty"`
	Questions  []ReviewQuestion `json:"questions"`
}

// Review rebuilds a terminal attempt in the order it was answered under.
// studentID, when non-empty, must own the attempt.
func (s *Service) Review(ctx context.Context, attemptID, studentID string) (Review, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Review{}, err
	}
	if studentID != "" && a.StudentID != studentID {
		return Review{}, fmt.Errorf("%w: attempt %s", quiz.ErrNotFound, attemptID)
	}
	if !a.Status.Terminal() {
		return Review{}, fmt.Errorf("%w: attempt %s is still in progress", quiz.ErrAttemptNotActive, attemptID)
	}
	return BuildReview(a)
}

// BuildReview regenerates the order from the attempt's snapshot and id. If
// that disagrees with the stored order, the stored order wins.
func BuildReview(a attempt.Attempt) (Review, error) {
	order, err := ordering.OrderFor(a.Quiz, a.ID)
	if err != nil {
		return Review{}, err
	}
	stored := ordering.Order{QuestionOrder: a.QuestionOrder, AnswerOrderByQuestion: a.AnswerOrderByQuestion}
	if len(a.QuestionOrder) > 0 && !order.Equal(stored) {
		log.Printf("[assessment] attempt %s: regenerated order differs from stored order; using stored", a.ID)
		order = stored
	}

	results := make(map[string]grading.AnswerResult, len(a.Results))
	for _, r := range a.Results {
		results[r.QuestionID] = r
	}

	out := Review{
		AttemptID:  a.ID,
		QuizID:     a.QuizID,
		StudentID:  a.StudentID,
		Status:     a.Status,
		Score:      a.Score,
		Percentage: a.Percentage,
		IsPassed:   a.IsPassed,
		Questions:  make([]ReviewQuestion, 0, len(order.QuestionOrder)),
	}
	for _, qid := range order.QuestionOrder {
		qq, ok := a.Quiz.Question(qid)
		if !ok {
			return Review{}, fmt.Errorf("%w: %s", quiz.ErrUnknownQuestion, qid)
		}
		if ids := order.AnswerOrderByQuestion[qid]; len(ids) > 0 {
			byID := make(map[string]quiz.Answer, len(qq.Answers))
			for _, ans := range qq.Answers {
				byID[ans.ID] = ans
			}
			answers := make([]quiz.Answer, 0, len(ids))
			for _, id := range ids {
				answers = append(answers, byID[id])
			}
			qq.Answers = answers
		}
		rq := ReviewQuestion{
			Question: qq,
			Selected: a.Responses[qid],
			Text:     a.TextResponses[qid],
			Seconds:  a.QuestionSeconds[qid],
		}
		if r, ok := results[qid]; ok {
			rq.Result = &r
		}
		out.Questions = append(out.Questions, rq)
	}
	return out, nil
}
