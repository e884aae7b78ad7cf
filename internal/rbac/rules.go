package rbac

const (
	PermQuizPublish    = "quiz:publish"
	PermQuizView       = "quiz:view"
	PermQuizViewKey    = "quiz:view-key"
	PermAttemptCreate  = "attempt:create"
	PermAttemptSave    = "attempt:save"
	PermAttemptSubmit  = "attempt:submit"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
	PermAttemptGrade   = "attempt:grade"
	PermAnalyticsView  = "analytics:view"
	PermScoreViewOwn   = "score:view-own"
	PermScoreViewAll   = "score:view-all"
	PermEventsRead     = "events:read"
)

// RolePermissions is the default policy. Students act on their own attempts;
// teachers author, grade and report.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizView,
		PermAttemptCreate,
		PermAttemptSave,
		PermAttemptSubmit,
		PermAttemptViewOwn,
		PermScoreViewOwn,
	},
	"teacher": {
		PermQuizPublish,
		PermQuizView,
		PermQuizViewKey,
		"attempt:view-*",
		PermAttemptGrade,
		PermAnalyticsView,
		"score:*",
	},
	"admin": {
		"*", // everything
	},
}
