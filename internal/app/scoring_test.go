package app

import (
	"testing"

	"chapter-quiz-service/internal/domain"
)

func twoQuestions() []domain.Question {
	return []domain.Question{
		{ID: "1", Text: "first", Options: []string{"a", "b"}, CorrectAnswer: 1},
		{ID: "2", Text: "second", Options: []string{"a", "b"}, CorrectAnswer: 0, Explanation: "because"},
	}
}

func TestScoreQuizCountsCorrectAnswers(t *testing.T) {
	result := ScoreQuiz(twoQuestions(), map[string]int{"1": 1, "2": 1})

	if result.Score != 1 {
		t.Fatalf("expected score 1, got %d", result.Score)
	}
	if result.TotalQuestions != 2 {
		t.Fatalf("expected 2 questions, got %d", result.TotalQuestions)
	}
	if !result.Results[0].IsCorrect || result.Results[1].IsCorrect {
		t.Fatalf("expected q1 correct and q2 incorrect, got %+v", result.Results)
	}
	if result.Results[1].Explanation != "because" {
		t.Fatalf("expected explanation carried through, got %+v", result.Results[1])
	}
}

func TestScoreQuizMissingAnswerIsIncorrect(t *testing.T) {
	result := ScoreQuiz(twoQuestions(), map[string]int{"1": 1})

	if result.Score != 1 {
		t.Fatalf("expected score 1, got %d", result.Score)
	}
	if result.Results[1].UserAnswer != nil {
		t.Fatalf("expected nil user answer for skipped question")
	}
	if result.Results[1].IsCorrect {
		t.Fatalf("skipped question must be incorrect")
	}
}

func TestScoreQuizOutOfRangeAnswerIsIncorrect(t *testing.T) {
	result := ScoreQuiz(twoQuestions(), map[string]int{"1": 7, "2": -1})
	if result.Score != 0 {
		t.Fatalf("expected score 0, got %d", result.Score)
	}
}

func TestPercentageRounding(t *testing.T) {
	cases := []struct {
		score, total, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{0, 5, 0},
		{5, 5, 100},
		{0, 0, 0}, // zero questions never divides
	}
	for _, tc := range cases {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}
