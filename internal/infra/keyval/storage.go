// Package keyval implements app.Storage over hash/set key-value primitives.
// It backs deployments without a relational database: quiz content comes
// from a static dataset fixed at construction, so chapter and question
// authoring are refused.
package keyval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/kv"
)

const (
	usersSetKey    = "users"
	usernameIdxKey = "usernames"
)

// Dataset is the quiz content served by this backend.
type Dataset struct {
	Chapters  []domain.Chapter
	Questions map[string][]domain.Question // keyed by chapter ID
}

// Storage is the key-value backed app.Storage implementation.
type Storage struct {
	kv   kv.Client
	data Dataset
	now  func() time.Time
}

func New(client kv.Client, data Dataset) *Storage {
	return &Storage{kv: client, data: data, now: time.Now}
}

// NewWithClock is test-only for deterministic timestamps.
func NewWithClock(client kv.Client, data Dataset, now func() time.Time) *Storage {
	return &Storage{kv: client, data: data, now: now}
}

func (s *Storage) CreateOrGetUser(ctx context.Context, username string) (domain.User, error) {
	if id, ok, err := s.kv.HGet(ctx, usernameIdxKey, username); err != nil {
		return domain.User{}, fmt.Errorf("lookup username: %w", err)
	} else if ok {
		return s.GetUser(ctx, id)
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
	if err := s.kv.HSet(ctx, userKey(user.ID), map[string]string{
		"id":               user.ID,
		"username":         user.Username,
		"totalScore":       "0",
		"quizzesCompleted": "0",
		"createdAt":        user.CreatedAt.Format(time.RFC3339Nano),
	}); err != nil {
		return domain.User{}, fmt.Errorf("store user: %w", err)
	}
	if err := s.kv.SAdd(ctx, usersSetKey, user.ID); err != nil {
		return domain.User{}, fmt.Errorf("index user: %w", err)
	}
	if err := s.kv.HSet(ctx, usernameIdxKey, map[string]string{username: user.ID}); err != nil {
		return domain.User{}, fmt.Errorf("index username: %w", err)
	}
	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, userID string) (domain.User, error) {
	fields, err := s.kv.HGetAll(ctx, userKey(userID))
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if fields["username"] == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	return userFromFields(fields), nil
}

func (s *Storage) ListChapters(_ context.Context) ([]domain.Chapter, error) {
	chapters := make([]domain.Chapter, 0, len(s.data.Chapters))
	for _, chapter := range s.data.Chapters {
		if chapter.Active {
			chapters = append(chapters, chapter)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].OrderIndex < chapters[j].OrderIndex
	})
	return chapters, nil
}

func (s *Storage) QuestionsByChapter(_ context.Context, chapterID string) ([]domain.Question, error) {
	if !s.hasChapter(chapterID) {
		return nil, domain.ErrChapterNotFound
	}
	questions := append([]domain.Question(nil), s.data.Questions[chapterID]...)
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
	return questions, nil
}

func (s *Storage) SubmitQuiz(ctx context.Context, attempt domain.QuizAttempt) (domain.QuizAttempt, error) {
	exists, err := s.kv.Exists(ctx, userKey(attempt.UserID))
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return domain.QuizAttempt{}, domain.ErrUserNotFound
	}
	if !s.hasChapter(attempt.ChapterID) {
		return domain.QuizAttempt{}, domain.ErrChapterNotFound
	}

	attempt.ID = uuid.NewString()
	attempt.CompletedAt = s.now().UTC()
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("encode answers: %w", err)
	}
	if err := s.kv.HSet(ctx, attemptKey(attempt.ID), map[string]string{
		"id":             attempt.ID,
		"userId":         attempt.UserID,
		"chapterId":      attempt.ChapterID,
		"score":          strconv.Itoa(attempt.Score),
		"totalQuestions": strconv.Itoa(attempt.TotalQuestions),
		"answers":        string(answers),
		"completedAt":    attempt.CompletedAt.Format(time.RFC3339Nano),
	}); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("store attempt: %w", err)
	}

	// counter bumps are atomic per field, so concurrent submissions for the
	// same user cannot lose increments
	if _, err := s.kv.HIncrBy(ctx, userKey(attempt.UserID), "totalScore", int64(attempt.Score)); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("bump score: %w", err)
	}
	if _, err := s.kv.HIncrBy(ctx, userKey(attempt.UserID), "quizzesCompleted", 1); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("bump quiz count: %w", err)
	}
	return attempt, nil
}

func (s *Storage) CreateChapter(context.Context, string, string) (domain.Chapter, error) {
	return domain.Chapter{}, domain.ErrReadOnlyContent
}

func (s *Storage) AddQuestions(context.Context, string, []domain.NewQuestion) ([]domain.Question, error) {
	return nil, domain.ErrReadOnlyContent
}

// ChapterLeaderboard serves global aggregates regardless of chapter: user
// counters are not tracked per chapter on this backend.
func (s *Storage) ChapterLeaderboard(ctx context.Context, chapterID string, limit int) ([]domain.LeaderboardEntry, error) {
	if !s.hasChapter(chapterID) {
		return nil, domain.ErrChapterNotFound
	}
	return s.GlobalLeaderboard(ctx, limit)
}

func (s *Storage) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	userIDs, err := s.kv.SMembers(ctx, usersSetKey)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(userIDs))
	for _, userID := range userIDs {
		fields, err := s.kv.HGetAll(ctx, userKey(userID))
		if err != nil {
			return nil, fmt.Errorf("load user %s: %w", userID, err)
		}
		if fields["username"] == "" {
			continue
		}
		user := userFromFields(fields)
		entries = append(entries, domain.LeaderboardEntry{
			Username:          user.Username,
			TotalScore:        user.TotalScore,
			QuizzesCompleted:  user.QuizzesCompleted,
			AveragePercentage: averagePercentage(user.TotalScore, user.QuizzesCompleted),
		})
	}

	// score descending, ties broken by username ascending for determinism
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].Username < entries[j].Username
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Storage) hasChapter(chapterID string) bool {
	for _, chapter := range s.data.Chapters {
		if chapter.ID == chapterID {
			return true
		}
	}
	return false
}

func averagePercentage(totalScore, quizzes int) float64 {
	if quizzes == 0 {
		return 0
	}
	return math.Round(float64(totalScore)/float64(quizzes)*100) / 100
}

func userFromFields(fields map[string]string) domain.User {
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["createdAt"])
	return domain.User{
		ID:               fields["id"],
		Username:         fields["username"],
		TotalScore:       atoi(fields["totalScore"]),
		QuizzesCompleted: atoi(fields["quizzesCompleted"]),
		CreatedAt:        createdAt,
	}
}

func atoi(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}

func userKey(userID string) string {
	return "user:" + userID
}

func attemptKey(attemptID string) string {
	return "attempt:" + attemptID
}
