// Package kv abstracts the hash-and-set key-value primitives the fallback
// storage path is built on. The in-process Store serves deployments with no
// database at all; the redis adapter serves the same role against a real
// Redis server.
package kv

import "context"

// Client exposes hash-fields-per-key and set-membership-per-key semantics.
type Client interface {
	// HSet merges fields into the hash at key, creating it if absent.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HGet returns the field value and whether the key and field exist.
	HGet(ctx context.Context, key, field string) (string, bool, error)
	// HGetAll returns all fields of the hash, empty (not an error) if the
	// key is absent.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HIncrBy atomically adds delta to an integer field and returns the new
	// value. A missing field counts as zero.
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	// Exists reports whether key holds a hash.
	Exists(ctx context.Context, key string) (bool, error)
	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error
	// SMembers returns the set members in unspecified order.
	SMembers(ctx context.Context, key string) ([]string, error)
	// Del removes the hash and set stored at key.
	Del(ctx context.Context, key string) error
	// FlushAll wipes all state. Test and reset use only.
	FlushAll(ctx context.Context) error
}
