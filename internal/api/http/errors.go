package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

var validate = validator.New()

// statusFor maps engine error kinds to HTTP status codes. Order matters:
// an in-progress refusal also wraps ErrQuizNotAvailable.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, quiz.ErrNotFound), errors.Is(err, quiz.ErrNoAttempts):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrInvalidQuizDefinition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrAttemptAlreadyInProgress), errors.Is(err, quiz.ErrAttemptNotActive):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrQuizNotAvailable), errors.Is(err, quiz.ErrAttemptLimitExceeded):
		return http.StatusForbidden
	case errors.Is(err, quiz.ErrAttemptExpired):
		return http.StatusGone
	case errors.Is(err, quiz.ErrUnknownQuestion), errors.Is(err, quiz.ErrManualGradeRejected),
		errors.Is(err, store.ErrUnsupportedSort), errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[api] internal error: %v", err)
		msg = "internal error"
	}
	http.Error(w, msg, status)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
