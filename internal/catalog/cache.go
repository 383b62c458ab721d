package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore publishes catalog documents in Redis. Documents are validated
// before they are stored and parsed again on every read.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore constructs a store. A ttl of zero keeps documents until replaced.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, ttl: ttl, prefix: prefix}
}

// Key returns the Redis key holding the named catalog.
func (s *RedisStore) Key(name string) string {
	return s.prefix + "catalog:" + name
}

// Put validates raw and stores it under name.
func (s *RedisStore) Put(ctx context.Context, name string, raw []byte) error {
	if s == nil || s.client == nil {
		return errors.New("catalog store: redis client not configured")
	}
	if !ValidName(name) {
		return &SchemaError{Reason: fmt.Sprintf("invalid catalog name %q", name)}
	}
	if _, err := Parse(raw); err != nil {
		return err
	}
	return s.client.Set(ctx, s.Key(name), raw, s.ttl).Err()
}

// Get loads and parses the named catalog.
func (s *RedisStore) Get(ctx context.Context, name string) (*Catalog, error) {
	if s == nil || s.client == nil || !ValidName(name) {
		return nil, fmt.Errorf("catalog %q: %w", name, ErrCatalogNotFound)
	}
	data, err := s.client.Get(ctx, s.Key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("catalog %q: %w", name, ErrCatalogNotFound)
		}
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("stored catalog %q: %w", name, err)
	}
	return c, nil
}

// Delete removes the named catalog. Missing catalogs are not an error.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.Key(name)).Err()
}
