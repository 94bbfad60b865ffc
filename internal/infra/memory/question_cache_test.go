package memory

import (
	"context"
	"testing"
	"time"

	"chapter-quiz-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	loader := &countingLoader{questions: sampleQuestions()}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.QuestionsByChapter(context.Background(), "ch-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.QuestionsByChapter(context.Background(), "ch-1"); err != nil {
		t.Fatalf("load 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheInvalidate(t *testing.T) {
	loader := &countingLoader{questions: sampleQuestions()}
	cache := NewQuestionCache(loader, time.Minute)

	_, _ = cache.QuestionsByChapter(context.Background(), "ch-1")
	cache.Invalidate(context.Background(), "ch-1")
	_, _ = cache.QuestionsByChapter(context.Background(), "ch-1")

	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", loader.calls)
	}
}

func TestQuestionCacheMissingChapter(t *testing.T) {
	loader := &countingLoader{}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.QuestionsByChapter(context.Background(), "nope"); err != domain.ErrChapterNotFound {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}
	// errors are not cached
	_, _ = cache.QuestionsByChapter(context.Background(), "nope")
	if loader.calls != 2 {
		t.Fatalf("expected 2 loader calls, got %d", loader.calls)
	}
}

type countingLoader struct {
	questions []domain.Question
	calls     int
}

func (l *countingLoader) QuestionsByChapter(_ context.Context, chapterID string) ([]domain.Question, error) {
	l.calls++
	if len(l.questions) == 0 || l.questions[0].ChapterID != chapterID {
		return nil, domain.ErrChapterNotFound
	}
	return l.questions, nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			ChapterID:     "ch-1",
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "6"},
			CorrectAnswer: 1,
			OrderIndex:    1,
		},
	}
}
