package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// POST /quizzes
// Creates or replaces a quiz. Attempts already started keep the definition
// they were started under.
func PublishQuizHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		saved, err := svc.PublishQuiz(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{
			"id":           saved.ID,
			"total_points": saved.TotalPoints(),
		})
	}
}

// GET /quizzes/{quizID}
// The answer key is only included for roles with quiz:view-key.
func GetQuizHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if !rbac.Can(r.Context(), rbac.PermQuizViewKey) {
			q = q.StudentView()
		}
		respondJSON(w, http.StatusOK, q)
	}
}
