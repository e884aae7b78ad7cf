package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type gradingItem struct {
	QuestionID string                `json:"question_id"`
	Type       string                `json:"type"`
	Prompt     string                `json:"prompt"`
	MaxPoints  float64               `json:"max_points"`
	Text       string                `json:"text,omitempty"`
	Result     *grading.AnswerResult `json:"result,omitempty"`
}

type applyGradesReq struct {
	Grades map[string]grading.ManualGrade `json:"grades" validate:"required,min=1"` // question_id -> grade
}

// GET /attempts/{attemptID}/grading
// Lists the manually graded questions of a terminal attempt with the
// student's text and the current result.
func GetAttemptGradingHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		rev, err := svc.Review(r.Context(), attemptID, "")
		if err != nil {
			writeError(w, err)
			return
		}
		items := []gradingItem{}
		for _, q := range rev.Questions {
			if !q.Question.Type.ManuallyGraded() {
				continue
			}
			items = append(items, gradingItem{
				QuestionID: q.Question.ID,
				Type:       string(q.Question.Type),
				Prompt:     q.Question.Text,
				MaxPoints:  q.Question.Points,
				Text:       q.Text,
				Result:     q.Result,
			})
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"attempt_id": rev.AttemptID,
			"items":      items,
		})
	}
}

// POST /attempts/{attemptID}/grading
// Body {"grades": {"q4": {"points": 3, "comment": "..."}}}. All grades are
// applied or none are.
func ApplyAttemptGradingHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		var req applyGradesReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, err)
			return
		}
		a, err := svc.GradeManually(r.Context(), attemptID, rbac.SubjectFromContext(r.Context()), req.Grades)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, viewOf(r, svc, a))
	}
}
