package kv

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *RedisClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRedisClientHashes(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	if _, ok, err := client.HGet(ctx, "user:1", "username"); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	if err := client.HSet(ctx, "user:1", map[string]string{"username": "alice", "totalScore": "0"}); err != nil {
		t.Fatalf("hset: %v", err)
	}
	name, ok, err := client.HGet(ctx, "user:1", "username")
	if err != nil || !ok || name != "alice" {
		t.Fatalf("hget: name=%q ok=%v err=%v", name, ok, err)
	}

	total, err := client.HIncrBy(ctx, "user:1", "totalScore", 4)
	if err != nil || total != 4 {
		t.Fatalf("hincrby: total=%d err=%v", total, err)
	}

	all, err := client.HGetAll(ctx, "user:1")
	if err != nil || all["totalScore"] != "4" {
		t.Fatalf("hgetall: %v err=%v", all, err)
	}

	exists, err := client.Exists(ctx, "user:1")
	if err != nil || !exists {
		t.Fatalf("exists: %v err=%v", exists, err)
	}
}

func TestRedisClientSets(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	if err := client.SAdd(ctx, "users", "u1", "u2", "u1"); err != nil {
		t.Fatalf("sadd: %v", err)
	}
	members, err := client.SMembers(ctx, "users")
	if err != nil || len(members) != 2 {
		t.Fatalf("smembers: %v err=%v", members, err)
	}

	if err := client.Del(ctx, "users"); err != nil {
		t.Fatalf("del: %v", err)
	}
	members, _ = client.SMembers(ctx, "users")
	if len(members) != 0 {
		t.Fatalf("expected empty set after del, got %v", members)
	}
}
