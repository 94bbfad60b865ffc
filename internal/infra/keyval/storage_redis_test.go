package keyval

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/kv"
)

// The storage must behave identically over the in-process store and a real
// Redis server; this exercises the go-redis adapter path.
func TestStorageOverRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := kv.NewRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store := New(client, testDataset())
	ctx := context.Background()

	user, err := store.CreateOrGetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	same, err := store.CreateOrGetUser(ctx, "alice")
	if err != nil || same.ID != user.ID {
		t.Fatalf("expected idempotent create, got %+v err=%v", same, err)
	}

	if _, err := store.SubmitQuiz(ctx, domain.QuizAttempt{
		UserID: user.ID, ChapterID: "ch-1", Score: 2, TotalQuestions: 2,
		Answers: map[string]int{"q1": 1, "q2": 0},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	updated, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if updated.TotalScore != 2 || updated.QuizzesCompleted != 1 {
		t.Fatalf("unexpected aggregates: %+v", updated)
	}

	entries, err := store.GlobalLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "alice" || entries[0].TotalScore != 2 {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}
}
