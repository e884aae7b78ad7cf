package quiz

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the shape of the definition and the per-type answer
// invariants. Every failure wraps ErrInvalidQuizDefinition.
func Validate(q Quiz) error {
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidQuizDefinition, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidQuizDefinition, err)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz has no questions", ErrInvalidQuizDefinition)
	}
	if w := q.AvailabilityWindow; w != nil && w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return fmt.Errorf("%w: availability window ends before it starts", ErrInvalidQuizDefinition)
	}

	seenQ := map[string]bool{}
	seenA := map[string]bool{}
	for _, qq := range q.Questions {
		if seenQ[qq.ID] {
			return fmt.Errorf("%w: duplicate question id %s", ErrInvalidQuizDefinition, qq.ID)
		}
		seenQ[qq.ID] = true
		for _, a := range qq.Answers {
			if seenA[a.ID] {
				return fmt.Errorf("%w: duplicate answer id %s", ErrInvalidQuizDefinition, a.ID)
			}
			seenA[a.ID] = true
		}
		if err := validateQuestion(qq); err != nil {
			return err
		}
	}
	if q.TotalPoints() <= 0 {
		return fmt.Errorf("%w: total points must be positive", ErrInvalidQuizDefinition)
	}
	return nil
}

func validateQuestion(qq Question) error {
	correct := len(qq.CorrectAnswerIDs())
	switch qq.Type {
	case SingleChoice, TrueFalse:
		if len(qq.Answers) < 2 {
			return fmt.Errorf("%w: question %s needs at least 2 answers", ErrInvalidQuizDefinition, qq.ID)
		}
		if correct != 1 {
			return fmt.Errorf("%w: question %s must have exactly one correct answer, has %d", ErrInvalidQuizDefinition, qq.ID, correct)
		}
	case MultipleChoice:
		if len(qq.Answers) < 2 {
			return fmt.Errorf("%w: question %s needs at least 2 answers", ErrInvalidQuizDefinition, qq.ID)
		}
		if correct < 1 {
			return fmt.Errorf("%w: question %s has no correct answer", ErrInvalidQuizDefinition, qq.ID)
		}
	case ShortAnswer, Essay:
		if len(qq.Answers) != 0 {
			return fmt.Errorf("%w: %s question %s must not define answers", ErrInvalidQuizDefinition, qq.Type, qq.ID)
		}
	default:
		return fmt.Errorf("%w: question %s has unsupported type %q", ErrInvalidQuizDefinition, qq.ID, qq.Type)
	}
	return nil
}
