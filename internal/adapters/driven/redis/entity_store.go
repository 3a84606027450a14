package redis

import (
	"context"
	"fmt"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.EntityStore = (*EntityStore)(nil)

const entityKeyPrefix = "findingaid:entities"

// EntityStore implements EntityStore using a single Redis hash.
// HSETNX gives first-writer-wins registration across every worker and
// machine sharing the Redis instance.
type EntityStore struct {
	client *redis.Client
	key    string
}

// NewEntityStore creates a new Redis-backed entity store.
// A non-empty namespace keeps registries of separate corpora apart.
func NewEntityStore(client *redis.Client, namespace string) *EntityStore {
	key := entityKeyPrefix
	if namespace != "" {
		key = entityKeyPrefix + ":" + namespace
	}
	return &EntityStore{
		client: client,
		key:    key,
	}
}

// Get returns the kind stored for key.
func (s *EntityStore) Get(ctx context.Context, key string) (domain.EntityKind, bool, error) {
	value, err := s.client.HGet(ctx, s.key, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get entity %s: %w", key, err)
	}
	kind, ok := domain.ParseEntityKind(value)
	return kind, ok, nil
}

// GetMany returns the known subset of keys in one round trip.
func (s *EntityStore) GetMany(ctx context.Context, keys []string) (map[string]domain.EntityKind, error) {
	out := make(map[string]domain.EntityKind, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.client.HMGet(ctx, s.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	for i, value := range values {
		str, ok := value.(string)
		if !ok {
			continue
		}
		if kind, ok := domain.ParseEntityKind(str); ok {
			out[keys[i]] = kind
		}
	}
	return out, nil
}

// PutIfAbsent stores kind under key unless the key exists.
func (s *EntityStore) PutIfAbsent(ctx context.Context, key string, kind domain.EntityKind) (bool, error) {
	stored, err := s.client.HSetNX(ctx, s.key, key, string(kind)).Result()
	if err != nil {
		return false, fmt.Errorf("put entity %s: %w", key, err)
	}
	return stored, nil
}

// Snapshot returns every stored entry.
func (s *EntityStore) Snapshot(ctx context.Context) (map[string]domain.EntityKind, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot entities: %w", err)
	}
	out := make(map[string]domain.EntityKind, len(values))
	for key, value := range values {
		if kind, ok := domain.ParseEntityKind(value); ok {
			out[key] = kind
		}
	}
	return out, nil
}

// Ping checks if the Redis backend is healthy.
func (s *EntityStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Key returns the Redis hash holding the entries.
func (s *EntityStore) Key() string {
	return s.key
}
