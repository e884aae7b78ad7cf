package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// Mount registers the protected quiz API on r (JWT -> role in context -> RBAC).
func Mount(r chi.Router, svc *assessment.Service, authSvc *auth.AuthService) {
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Teacher: author and inspect quizzes
		pr.With(rbac.Require(rbac.PermQuizPublish)).
			Post("/quizzes", PublishQuizHandler(svc))
		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes", ListQuizzesHandler(svc))
		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes/{quizID}", GetQuizHandler(svc))
		pr.With(rbac.Require(rbac.PermAnalyticsView)).
			Get("/quizzes/{quizID}/analytics", QuizAnalyticsHandler(svc))
		pr.With(rbac.RequireAny(rbac.PermScoreViewOwn, rbac.PermScoreViewAll)).
			Get("/quizzes/{quizID}/score", EffectiveScoreHandler(svc))

		// Student flow
		pr.With(rbac.Require(rbac.PermAttemptCreate)).
			Post("/quizzes/{quizID}/attempts", StartAttemptHandler(svc))
		pr.With(rbac.Require(rbac.PermAttemptSave)).
			Post("/attempts/{attemptID}/responses", SaveResponseHandler(svc))
		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(svc))

		// Owner checks happen in the handlers
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts", ListAttemptsHandler(svc))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}", GetAttemptHandler(svc))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}/review", ReviewAttemptHandler(svc))

		// Manual grading
		pr.With(rbac.Require(rbac.PermAttemptGrade)).
			Get("/attempts/{attemptID}/grading", GetAttemptGradingHandler(svc))
		pr.With(rbac.Require(rbac.PermAttemptGrade)).
			Post("/attempts/{attemptID}/grading", ApplyAttemptGradingHandler(svc))

		pr.With(rbac.Require(rbac.PermEventsRead)).
			Get("/events", EventsHandler(svc))
	})
}
