package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

// GET /quizzes?course_id=...&q=...&limit=50&offset=0
func ListQuizzesHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListQuizzes(r.Context(), store.QuizListOpts{
			CourseID: strings.TrimSpace(r.URL.Query().Get("course_id")),
			Q:        strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:    parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:   parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
