// Package postgres implements app.Storage against PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chapter-quiz-service/internal/domain"
)

// Storage is the relational app.Storage implementation.
type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

const userColumns = `id, username, total_score, quizzes_completed, created_at`

// CreateOrGetUser is idempotent by username; the upsert keeps two racing
// registrations from creating duplicate rows.
func (s *Storage) CreateOrGetUser(ctx context.Context, username string) (domain.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username) VALUES ($1)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING `+userColumns, username)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create or get user: %w", err)
	}
	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, userID string) (domain.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Storage) ListChapters(ctx context.Context) ([]domain.Chapter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), order_index, is_active, created_at, updated_at
		FROM chapters
		WHERE is_active
		ORDER BY order_index`)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []domain.Chapter
	for rows.Next() {
		var chapter domain.Chapter
		if err := rows.Scan(&chapter.ID, &chapter.Name, &chapter.Description,
			&chapter.OrderIndex, &chapter.Active, &chapter.CreatedAt, &chapter.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

func (s *Storage) QuestionsByChapter(ctx context.Context, chapterID string) ([]domain.Question, error) {
	if _, err := uuid.Parse(chapterID); err != nil {
		return nil, domain.ErrChapterNotFound
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, chapter_id, question_text, options, correct_answer, order_index, COALESCE(explanation, '')
		FROM questions
		WHERE chapter_id = $1
		ORDER BY order_index`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var question domain.Question
		var options []byte
		if err := rows.Scan(&question.ID, &question.ChapterID, &question.Text,
			&options, &question.CorrectAnswer, &question.OrderIndex, &question.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &question.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

// SubmitQuiz inserts the attempt and bumps the user's aggregates in one
// transaction, so the cumulative score cannot drift from attempt history.
func (s *Storage) SubmitQuiz(ctx context.Context, attempt domain.QuizAttempt) (domain.QuizAttempt, error) {
	if _, err := uuid.Parse(attempt.UserID); err != nil {
		return domain.QuizAttempt{}, domain.ErrUserNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, attempt.UserID).Scan(&exists); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return domain.QuizAttempt{}, domain.ErrUserNotFound
	}

	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("encode answers: %w", err)
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO quiz_attempts (user_id, chapter_id, score, total_questions, answers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, completed_at`,
		attempt.UserID, attempt.ChapterID, attempt.Score, attempt.TotalQuestions, answers,
	).Scan(&attempt.ID, &attempt.CompletedAt)
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET total_score = total_score + $2,
		    quizzes_completed = quizzes_completed + 1,
		    updated_at = NOW()
		WHERE id = $1`, attempt.UserID, attempt.Score)
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("update user aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("commit submit: %w", err)
	}
	return attempt, nil
}

func (s *Storage) CreateChapter(ctx context.Context, name, description string) (domain.Chapter, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO chapters (name, description, order_index)
		VALUES ($1, $2, (SELECT COALESCE(MAX(order_index), 0) + 1 FROM chapters))
		RETURNING id, name, COALESCE(description, ''), order_index, is_active, created_at, updated_at`,
		name, description)

	var chapter domain.Chapter
	if err := row.Scan(&chapter.ID, &chapter.Name, &chapter.Description,
		&chapter.OrderIndex, &chapter.Active, &chapter.CreatedAt, &chapter.UpdatedAt); err != nil {
		return domain.Chapter{}, fmt.Errorf("create chapter: %w", err)
	}
	return chapter, nil
}

func (s *Storage) AddQuestions(ctx context.Context, chapterID string, questions []domain.NewQuestion) ([]domain.Question, error) {
	if _, err := uuid.Parse(chapterID); err != nil {
		return nil, domain.ErrChapterNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin question batch: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chapters WHERE id = $1)`, chapterID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check chapter: %w", err)
	}
	if !exists {
		return nil, domain.ErrChapterNotFound
	}

	created := make([]domain.Question, 0, len(questions))
	for i, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return nil, fmt.Errorf("encode options: %w", err)
		}
		question := domain.Question{
			ChapterID:     chapterID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			OrderIndex:    i + 1,
			Explanation:   q.Explanation,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO questions (chapter_id, question_text, options, correct_answer, order_index, explanation)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
			RETURNING id`,
			chapterID, q.Text, options, q.CorrectAnswer, i+1, q.Explanation,
		).Scan(&question.ID)
		if err != nil {
			return nil, fmt.Errorf("insert question %d: %w", i+1, err)
		}
		created = append(created, question)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit question batch: %w", err)
	}
	return created, nil
}

func (s *Storage) ChapterLeaderboard(ctx context.Context, chapterID string, limit int) ([]domain.LeaderboardEntry, error) {
	if _, err := uuid.Parse(chapterID); err != nil {
		return nil, domain.ErrChapterNotFound
	}
	return s.queryLeaderboard(ctx, `
		SELECT username, total_score, attempts_count, average_percentage
		FROM chapter_leaderboards
		WHERE chapter_id = $1
		ORDER BY total_score DESC, username ASC
		LIMIT $2`, chapterID, limit)
}

func (s *Storage) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.queryLeaderboard(ctx, `
		SELECT username, total_score, attempts_count, average_percentage
		FROM global_leaderboard
		ORDER BY total_score DESC, username ASC
		LIMIT $1`, limit)
}

func (s *Storage) queryLeaderboard(ctx context.Context, query string, args ...interface{}) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.Username, &entry.TotalScore, &entry.QuizzesCompleted, &entry.AveragePercentage); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.TotalScore, &user.QuizzesCompleted, &user.CreatedAt)
	return user, err
}
