package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewLimiter builds a fixed-window limiter for rate. Counters live in Redis
// when client is non-nil so several register lanes share one budget, and in
// process memory otherwise.
func NewLimiter(rate limiter.Rate, client *redis.Client, prefix string) (*limiter.Limiter, error) {
	opts := limiter.StoreOptions{Prefix: prefix + "ratelimit"}
	if client == nil {
		return limiter.New(memory.NewStoreWithOptions(opts), rate), nil
	}
	store, err := limiterredis.NewStoreWithOptions(client, opts)
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	return limiter.New(store, rate), nil
}
