// Package quiztest holds quiz definitions shared by tests across packages.
package quiztest

import "github.com/mind-engage/mindengage-quiz/internal/quiz"

// Sample returns an active, timed (30 min) quiz worth 30 points with a 70%
// pass mark and three allowed attempts:
//
//	q1 SINGLE_CHOICE   10 pts  answers 5, 6*, 7
//	q2 MULTIPLE_CHOICE 10 pts  answers 1*, 2, 3*
//	q3 TRUE_FALSE       5 pts  answers t*, f
//	q4 ESSAY            5 pts
func Sample() quiz.Quiz {
	limit := 30
	return quiz.Quiz{
		ID:                "quiz-1",
		Title:             "Fractions",
		Kind:              quiz.KindLessonQuiz,
		CourseID:          "course-1",
		LessonID:          "lesson-1",
		MaxAttempts:       3,
		ScoringMethod:     quiz.ScoreHighest,
		PassingPercentage: 70,
		TimeLimitMinutes:  &limit,
		IsActive:          true,
		Questions: []quiz.Question{
			{
				ID: "q1", Type: quiz.SingleChoice, Text: "1/2 + 1/2 = ?", OrderIndex: 0, Points: 10,
				Answers: []quiz.Answer{
					{ID: "5", Text: "0", OrderIndex: 0},
					{ID: "6", Text: "1", IsCorrect: true, OrderIndex: 1},
					{ID: "7", Text: "2", OrderIndex: 2},
				},
			},
			{
				ID: "q2", Type: quiz.MultipleChoice, Text: "Which equal 1/2?", OrderIndex: 1, Points: 10,
				Answers: []quiz.Answer{
					{ID: "1", Text: "2/4", IsCorrect: true, OrderIndex: 0},
					{ID: "2", Text: "2/3", OrderIndex: 1},
					{ID: "3", Text: "3/6", IsCorrect: true, OrderIndex: 2},
				},
			},
			{
				ID: "q3", Type: quiz.TrueFalse, Text: "1/3 < 1/2", OrderIndex: 2, Points: 5,
				Explanation: "Smaller denominators give larger unit fractions.",
				Answers: []quiz.Answer{
					{ID: "t", Text: "True", IsCorrect: true, OrderIndex: 0},
					{ID: "f", Text: "False", OrderIndex: 1},
				},
			},
			{ID: "q4", Type: quiz.Essay, Text: "Explain equivalent fractions.", OrderIndex: 3, Points: 5},
		},
	}
}

// Shuffled is Sample with question and answer shuffling enabled.
func Shuffled() quiz.Quiz {
	q := Sample()
	q.ShuffleQuestions = true
	q.ShuffleAnswers = true
	return q
}

// Untimed is Sample with no time limit and unlimited attempts.
func Untimed() quiz.Quiz {
	q := Sample()
	q.TimeLimitMinutes = nil
	q.MaxAttempts = quiz.UnlimitedAttempts
	return q
}
