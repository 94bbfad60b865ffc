package kv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Store is the in-process Client implementation. State lives for the
// process lifetime only; a restart discards everything.
type Store struct {
	mu     sync.RWMutex
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string, len(fields))
		s.hashes[key] = hash
	}
	for field, value := range fields {
		hash[field] = value
	}
	return nil
}

func (s *Store) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.hashes[key]
	if !ok {
		return "", false, nil
	}
	value, ok := hash[field]
	return value, ok, nil
}

func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]string, len(s.hashes[key]))
	for field, value := range s.hashes[key] {
		result[field] = value
	}
	return result, nil
}

// HIncrBy is atomic under the store lock, so concurrent counter updates for
// the same user cannot lose increments.
func (s *Store) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string)
		s.hashes[key] = hash
	}
	current := int64(0)
	if raw, ok := hash[field]; ok && raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("hincrby %s.%s: %w", key, field, err)
		}
		current = parsed
	}
	current += delta
	hash[field] = strconv.FormatInt(current, 10)
	return current, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[key]
	return ok, nil
}

func (s *Store) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]string, 0, len(s.sets[key]))
	for member := range s.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.sets, key)
	return nil
}

func (s *Store) FlushAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes = make(map[string]map[string]string)
	s.sets = make(map[string]map[string]struct{})
	return nil
}
