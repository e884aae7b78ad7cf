package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// GET /quizzes/{quizID}/analytics
func QuizAnalyticsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.QuizAnalytics(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// GET /quizzes/{quizID}/score?student_id=...
// Without score:view-all the caller only ever sees their own score.
func EffectiveScoreHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := strings.TrimSpace(r.URL.Query().Get("student_id"))
		if !rbac.Can(r.Context(), rbac.PermScoreViewAll) || studentID == "" {
			studentID = rbac.SubjectFromContext(r.Context())
		}
		if studentID == "" {
			http.Error(w, "student_id required", http.StatusBadRequest)
			return
		}
		out, err := svc.EffectiveScore(r.Context(), chi.URLParam(r, "quizID"), studentID)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"student_id": studentID,
			"score":      out,
		})
	}
}

// GET /events?after=0&limit=100
func EventsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		after, err := strconv.ParseInt(strings.TrimSpace(q.Get("after")), 10, 64)
		if err != nil && q.Get("after") != "" {
			http.Error(w, "after must be an integer", http.StatusBadRequest)
			return
		}
		events, err := svc.Events(r.Context(), after, parseIntDefault(q.Get("limit"), 100))
		if err != nil {
			writeError(w, err)
			return
		}
		next := after
		if len(events) > 0 {
			next = events[len(events)-1].Seq
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"events": events,
			"next":   next,
		})
	}
}
