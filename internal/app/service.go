package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"chapter-quiz-service/internal/domain"
)

const defaultLeaderboardLimit = 10

// Storage is the persistence contract. One implementation is chosen at
// startup (relational or key-value backed) and injected here; the service
// never branches on backend kind.
type Storage interface {
	CreateOrGetUser(ctx context.Context, username string) (domain.User, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	ListChapters(ctx context.Context) ([]domain.Chapter, error)
	QuestionsByChapter(ctx context.Context, chapterID string) ([]domain.Question, error)
	SubmitQuiz(ctx context.Context, attempt domain.QuizAttempt) (domain.QuizAttempt, error)
	CreateChapter(ctx context.Context, name, description string) (domain.Chapter, error)
	AddQuestions(ctx context.Context, chapterID string, questions []domain.NewQuestion) ([]domain.Question, error)
	ChapterLeaderboard(ctx context.Context, chapterID string, limit int) ([]domain.LeaderboardEntry, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// QuestionRepository serves chapter question reads, usually through a cache.
type QuestionRepository interface {
	QuestionsByChapter(ctx context.Context, chapterID string) ([]domain.Question, error)
	Invalidate(ctx context.Context, chapterID string)
}

// QuizService contains the quiz use cases.
type QuizService struct {
	store     Storage
	questions QuestionRepository

	mu          sync.Mutex
	subscribers map[chan []domain.LeaderboardEntry]struct{}
}

func NewQuizService(store Storage, questions QuestionRepository) *QuizService {
	return &QuizService{
		store:       store,
		questions:   questions,
		subscribers: make(map[chan []domain.LeaderboardEntry]struct{}),
	}
}

// Register creates a user or returns the existing one with that username.
func (s *QuizService) Register(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	return s.store.CreateOrGetUser(ctx, username)
}

func (s *QuizService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *QuizService) ListChapters(ctx context.Context) ([]domain.Chapter, error) {
	return s.store.ListChapters(ctx)
}

// ChapterQuestions returns the chapter's questions including the correct
// answer index; the transport layer strips it before responding.
func (s *QuizService) ChapterQuestions(ctx context.Context, chapterID string) ([]domain.Question, error) {
	return s.questions.QuestionsByChapter(ctx, chapterID)
}

// SubmitQuiz scores the answers, persists the attempt with the user's
// counter updates, and pushes a refreshed leaderboard to subscribers.
func (s *QuizService) SubmitQuiz(ctx context.Context, userID, chapterID string, answers map[string]int) (domain.QuizResult, error) {
	questions, err := s.questions.QuestionsByChapter(ctx, chapterID)
	if err != nil {
		return domain.QuizResult{}, err
	}

	result := ScoreQuiz(questions, answers)
	_, err = s.store.SubmitQuiz(ctx, domain.QuizAttempt{
		UserID:         userID,
		ChapterID:      chapterID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Answers:        answers,
	})
	if err != nil {
		return domain.QuizResult{}, err
	}

	s.broadcastLeaderboard(ctx)
	return result, nil
}

func (s *QuizService) CreateChapter(ctx context.Context, name, description string) (domain.Chapter, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Chapter{}, fmt.Errorf("%w: chapter name is required", domain.ErrValidation)
	}
	return s.store.CreateChapter(ctx, strings.TrimSpace(name), description)
}

// AddQuestions validates and persists a question batch, then drops the
// chapter from the question cache so the upload is visible immediately.
func (s *QuizService) AddQuestions(ctx context.Context, chapterID string, questions []domain.NewQuestion) ([]domain.Question, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", domain.ErrValidation)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("%w: question %d has no text", domain.ErrValidation, i+1)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d needs at least two options", domain.ErrValidation, i+1)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d correct_answer out of range", domain.ErrValidation, i+1)
		}
	}

	created, err := s.store.AddQuestions(ctx, chapterID, questions)
	if err != nil {
		return nil, err
	}
	s.questions.Invalidate(ctx, chapterID)
	return created, nil
}

func (s *QuizService) ChapterLeaderboard(ctx context.Context, chapterID string, limit int) ([]domain.LeaderboardEntry, error) {
	return s.store.ChapterLeaderboard(ctx, chapterID, normalizeLimit(limit))
}

func (s *QuizService) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.store.GlobalLeaderboard(ctx, normalizeLimit(limit))
}

// Subscribe returns a channel receiving global leaderboard snapshots after
// each accepted submission. The caller must invoke cancel to avoid leaks.
func (s *QuizService) Subscribe() (<-chan []domain.LeaderboardEntry, func()) {
	ch := make(chan []domain.LeaderboardEntry, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *QuizService) broadcastLeaderboard(ctx context.Context) {
	s.mu.Lock()
	empty := len(s.subscribers) == 0
	s.mu.Unlock()
	if empty {
		return
	}

	entries, err := s.store.GlobalLeaderboard(ctx, defaultLeaderboardLimit)
	if err != nil {
		log.Printf("leaderboard broadcast skipped: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- entries:
		default:
			// drop the stale snapshot so slow readers never block a submit
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	return limit
}
