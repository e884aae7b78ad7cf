package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

// GET /attempts?quiz_id=...&student_id=...&status=...&limit=50&offset=0&sort=started_at+desc
// RBAC:
// - role with attempt:view-all can list any filters
// - role with attempt:view-own only sees their own attempts (student_id is forced to subject)
func ListAttemptsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		studentID := strings.TrimSpace(q.Get("student_id"))
		if owner := ownerScope(r); owner != "" {
			studentID = owner
		}

		opts := store.AttemptListOpts{
			QuizID:    strings.TrimSpace(q.Get("quiz_id")),
			StudentID: studentID,
			Status:    attempt.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
			Limit:     parseIntDefault(q.Get("limit"), 50),
			Offset:    parseIntDefault(q.Get("offset"), 0),
			Sort:      strings.TrimSpace(q.Get("sort")),
		}
		switch opts.Status {
		case "", attempt.StatusInProgress, attempt.StatusSubmitted, attempt.StatusExpired:
		default:
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}

		list, err := svc.ListAttempts(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]attemptView, 0, len(list))
		for _, a := range list {
			out = append(out, viewOf(r, svc, a))
		}
		respondJSON(w, http.StatusOK, out)
	}
}
