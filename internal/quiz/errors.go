package quiz

import "errors"

// Error kinds returned by the engine. Callers match them with errors.Is;
// the returned error usually wraps one of these with detail.
var (
	ErrInvalidQuizDefinition    = errors.New("invalid quiz definition")
	ErrQuizNotAvailable         = errors.New("quiz not available")
	ErrAttemptLimitExceeded     = errors.New("attempt limit exceeded")
	ErrAttemptAlreadyInProgress = errors.New("attempt already in progress")
	ErrAttemptNotActive         = errors.New("attempt not active")
	ErrAttemptExpired           = errors.New("attempt expired")
	ErrUnknownQuestion          = errors.New("unknown question")
	ErrNoAttempts               = errors.New("no attempts")

	ErrManualGradeRejected = errors.New("manual grade rejected")
	ErrNotFound            = errors.New("not found")
)
