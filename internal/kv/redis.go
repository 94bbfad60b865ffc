package kv

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisClient adapts a go-redis client to the Client interface.
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) HSet(ctx context.Context, key string, fields map[string]string) error {
	args := make([]interface{}, 0, len(fields)*2)
	for field, value := range fields {
		args = append(args, field, value)
	}
	return r.client.HSet(ctx, key, args...).Err()
}

func (r *RedisClient) HGet(ctx context.Context, key, field string) (string, bool, error) {
	value, err := r.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, key).Result()
}

func (r *RedisClient) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return r.client.HIncrBy(ctx, key, field, delta).Result()
}

func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *RedisClient) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, member := range members {
		args[i] = member
	}
	return r.client.SAdd(ctx, key, args...).Err()
}

func (r *RedisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *RedisClient) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisClient) FlushAll(ctx context.Context) error {
	return r.client.FlushAll(ctx).Err()
}
