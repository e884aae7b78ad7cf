// Package ordering builds the per-attempt question and answer order.
//
// Orders are a pure function of the quiz definition and a seed (the attempt
// id), so the order a student answered under can be rebuilt at any time for
// review.
package ordering

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type Order struct {
	QuestionOrder         []string            `json:"question_order"`
	AnswerOrderByQuestion map[string][]string `json:"answer_order_by_question"`
}

// OrderFor returns the order for one attempt. The quiz is re-validated first.
func OrderFor(q quiz.Quiz, seed string) (Order, error) {
	if err := quiz.Validate(q); err != nil {
		return Order{}, err
	}

	questions := q.SortedQuestions()
	out := Order{
		QuestionOrder:         make([]string, 0, len(questions)),
		AnswerOrderByQuestion: make(map[string][]string, len(questions)),
	}
	for _, qq := range questions {
		out.QuestionOrder = append(out.QuestionOrder, qq.ID)

		answers := qq.SortedAnswers()
		ids := make([]string, 0, len(answers))
		for _, a := range answers {
			ids = append(ids, a.ID)
		}
		if q.ShuffleAnswers && len(ids) > 1 {
			// scoped per question so one question's answers do not move
			// when another question is added or removed
			shuffle(ids, source(seed, "answers/"+qq.ID))
		}
		out.AnswerOrderByQuestion[qq.ID] = ids
	}
	if q.ShuffleQuestions {
		shuffle(out.QuestionOrder, source(seed, "questions"))
	}
	return out, nil
}

// Equal reports whether two orders present the same sequence.
func (o Order) Equal(other Order) bool {
	if !sameSeq(o.QuestionOrder, other.QuestionOrder) {
		return false
	}
	if len(o.AnswerOrderByQuestion) != len(other.AnswerOrderByQuestion) {
		return false
	}
	for qid, ids := range o.AnswerOrderByQuestion {
		if !sameSeq(ids, other.AnswerOrderByQuestion[qid]) {
			return false
		}
	}
	return true
}

func sameSeq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// source derives a PCG stream from the seed and a scope label. PCG's output
// sequence is fixed by its definition, which keeps orders stable across
// process restarts and Go releases.
func source(seed, scope string) *rand.PCG {
	sum := sha256.Sum256([]byte(seed + "\x00" + scope))
	return rand.NewPCG(binary.BigEndian.Uint64(sum[0:8]), binary.BigEndian.Uint64(sum[8:16]))
}

// shuffle is a Fisher-Yates shuffle driven only by raw PCG output, so the
// permutation does not depend on the rand package's bounding helpers.
func shuffle(ids []string, src *rand.PCG) {
	for i := len(ids) - 1; i > 0; i-- {
		j := bounded(src, uint64(i+1))
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// bounded returns a uniform value in [0, n) using rejection sampling.
func bounded(src *rand.PCG, n uint64) uint64 {
	limit := ^uint64(0) - (^uint64(0) % n)
	for {
		v := src.Uint64()
		if v < limit {
			return v % n
		}
	}
}
