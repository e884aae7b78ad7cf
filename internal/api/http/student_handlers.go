package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// attemptView is an attempt as returned to API callers, with the seconds
// left on the clock for timed quizzes.
type attemptView struct {
	attempt.Attempt
	RemainingSeconds *int64 `json:"remaining_seconds,omitempty"`
}

func viewOf(r *http.Request, svc *assessment.Service, a attempt.Attempt) attemptView {
	if !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
		a = a.ForStudent()
	}
	v := attemptView{Attempt: a}
	if d := a.Remaining(svc.Now()); d != nil {
		secs := int64(d.Seconds())
		v.RemainingSeconds = &secs
	}
	return v
}

// ownerScope is the student id writes and reads are restricted to: the
// caller's subject unless the role can see every attempt.
func ownerScope(r *http.Request) string {
	if rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
		return ""
	}
	return rbac.SubjectFromContext(r.Context())
}

// POST /quizzes/{quizID}/attempts
func StartAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		if sub == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		a, err := svc.StartAttempt(r.Context(), chi.URLParam(r, "quizID"), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, viewOf(r, svc, a))
	}
}

type saveResponseReq struct {
	QuestionID string   `json:"question_id" validate:"required"`
	AnswerIDs  []string `json:"answer_ids" validate:"omitempty,dive,required"`
	Text       *string  `json:"text,omitempty"`
}

// POST /attempts/{attemptID}/responses
// Body {question_id, answer_ids} for choice questions, {question_id, text}
// for SHORT_ANSWER/ESSAY. Replaces any earlier response to that question.
func SaveResponseHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveResponseReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, err)
			return
		}
		id := chi.URLParam(r, "attemptID")
		sub := rbac.SubjectFromContext(r.Context())

		var (
			a   attempt.Attempt
			err error
		)
		if req.Text != nil {
			a, err = svc.RecordTextResponse(r.Context(), id, sub, req.QuestionID, *req.Text)
		} else {
			a, err = svc.RecordResponse(r.Context(), id, sub, req.QuestionID, req.AnswerIDs)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, viewOf(r, svc, a))
	}
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Submit(r.Context(), chi.URLParam(r, "attemptID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, viewOf(r, svc, a))
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		a, err := svc.GetAttempt(r.Context(), id)
		if err == nil {
			if owner := ownerScope(r); owner != "" && a.StudentID != owner {
				err = fmt.Errorf("%w: attempt %s", quiz.ErrNotFound, id)
			}
		}
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, viewOf(r, svc, a))
	}
}

// GET /attempts/{attemptID}/review
func ReviewAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rev, err := svc.Review(r.Context(), chi.URLParam(r, "attemptID"), ownerScope(r))
		if err != nil {
			if errors.Is(err, quiz.ErrAttemptNotActive) {
				http.Error(w, "review is available after submission", http.StatusConflict)
				return
			}
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rev)
	}
}
