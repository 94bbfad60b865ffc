package domain

import "time"

// User is a registered quiz taker. TotalScore and QuizzesCompleted are
// incrementally maintained aggregates, bumped on every submission.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	TotalScore       int       `json:"totalScore"`
	QuizzesCompleted int       `json:"quizzesCompleted"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Chapter groups questions under an ordering position.
type Chapter struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OrderIndex  int       `json:"order_index"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Question is an MCQ with a zero-based correct option index.
type Question struct {
	ID            string   `json:"id"`
	ChapterID     string   `json:"chapter_id"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	OrderIndex    int      `json:"order_index"`
	Explanation   string   `json:"explanation,omitempty"`
}

// NewQuestion is the authoring shape for batch uploads; IDs and order
// indices are assigned on insert.
type NewQuestion struct {
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizAttempt records one completed submission. Attempts are write-once:
// never mutated or deleted afterwards.
type QuizAttempt struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	ChapterID      string         `json:"chapterId"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        map[string]int `json:"answers"`
	CompletedAt    time.Time      `json:"completedAt"`
}

// LeaderboardEntry is derived from user aggregates, not from replaying
// attempts.
type LeaderboardEntry struct {
	Username          string  `json:"username"`
	TotalScore        int     `json:"total_score"`
	QuizzesCompleted  int     `json:"attempts_count"`
	AveragePercentage float64 `json:"average_percentage"`
}

// QuestionResult is the per-question outcome of a scored submission.
// UserAnswer is nil when the submitter skipped the question.
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	Question      string `json:"question"`
	UserAnswer    *int   `json:"userAnswer"`
	CorrectAnswer int    `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation,omitempty"`
}

// QuizResult aggregates a scored submission.
type QuizResult struct {
	Score          int              `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	Percentage     int              `json:"percentage"`
	Results        []QuestionResult `json:"results"`
}
