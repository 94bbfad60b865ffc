// Package redis provides Redis-backed caching infrastructure for
// deployments that pair the relational store with a Redis server.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"chapter-quiz-service/internal/domain"
)

// QuestionLoader fetches chapter questions from the backing store.
type QuestionLoader interface {
	QuestionsByChapter(ctx context.Context, chapterID string) ([]domain.Question, error)
}

// QuestionCache caches chapter questions in Redis (hash per chapter, one
// JSON-encoded field per question) and falls back to the loader on miss.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) QuestionsByChapter(ctx context.Context, chapterID string) ([]domain.Question, error) {
	key := c.key(chapterID)

	cached, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		return decodeQuestions(cached)
	}

	result, err, _ := c.sf.Do(chapterID, func() (interface{}, error) {
		// re-check in case another goroutine filled the cache
		cached, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			return decodeQuestions(cached)
		}

		questions, err := c.loader.QuestionsByChapter(ctx, chapterID)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		pipe := c.client.Pipeline()
		for _, question := range questions {
			encoded, err := json.Marshal(question)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, key, question.ID, encoded)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// cache writes are best effort; a failed pipeline just means a
		// reload next time
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the chapter's cache entry, used after uploads.
func (c *QuestionCache) Invalidate(ctx context.Context, chapterID string) {
	_ = c.client.Del(ctx, c.key(chapterID)).Err()
}

func (c *QuestionCache) key(chapterID string) string {
	return "chapter:" + chapterID + ":questions"
}

func decodeQuestions(cached map[string]string) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(cached))
	for _, raw := range cached {
		var question domain.Question
		if err := json.Unmarshal([]byte(raw), &question); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
	return questions, nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
