// Package memory provides in-process caching infrastructure.
package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"chapter-quiz-service/internal/domain"
)

// QuestionLoader fetches chapter questions from the backing store.
type QuestionLoader interface {
	QuestionsByChapter(ctx context.Context, chapterID string) ([]domain.Question, error)
}

// QuestionCache caches chapter question sets with TTL to avoid repeated
// store hits on every fetch and submission.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (c *QuestionCache) QuestionsByChapter(ctx context.Context, chapterID string) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[chapterID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(chapterID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[chapterID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.QuestionsByChapter(ctx, chapterID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[chapterID] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a chapter so the next read reloads, used after uploads.
func (c *QuestionCache) Invalidate(_ context.Context, chapterID string) {
	c.mu.Lock()
	delete(c.cache, chapterID)
	c.mu.Unlock()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
