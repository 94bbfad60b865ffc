package app

import (
	"math"

	"chapter-quiz-service/internal/domain"
)

// ScoreQuiz grades a submission against the chapter's questions. It is pure:
// a missing or out-of-range answer counts as incorrect, never as an error.
func ScoreQuiz(questions []domain.Question, answers map[string]int) domain.QuizResult {
	results := make([]domain.QuestionResult, 0, len(questions))
	score := 0

	for _, question := range questions {
		var userAnswer *int
		correct := false
		if chosen, ok := answers[question.ID]; ok {
			userAnswer = &chosen
			correct = chosen == question.CorrectAnswer
		}
		if correct {
			score++
		}
		results = append(results, domain.QuestionResult{
			QuestionID:    question.ID,
			Question:      question.Text,
			UserAnswer:    userAnswer,
			CorrectAnswer: question.CorrectAnswer,
			IsCorrect:     correct,
			Explanation:   question.Explanation,
		})
	}

	return domain.QuizResult{
		Score:          score,
		TotalQuestions: len(questions),
		Percentage:     Percentage(score, len(questions)),
		Results:        results,
	}
}

// Percentage returns round(score/total*100), or 0 when total is zero.
func Percentage(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
