// Package cache provides the prediction-result cache. Results are keyed by a
// digest of the input features; a hit skips the scorer entirely.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores numeric prediction results by key with a TTL.
type Cache interface {
	// GetFloat returns the cached value and whether it was present.
	GetFloat(ctx context.Context, key string) (float64, bool, error)

	// SetFloat stores value under key for ttl.
	SetFloat(ctx context.Context, key string, value float64, ttl time.Duration) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection with a short ping.
func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		// Corrupt entry; treat as a miss.
		return 0, false, nil
	}
	return f, true, nil
}

func (r *Redis) SetFloat(ctx context.Context, key string, value float64, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop is a Cache that stores nothing. Used when no Redis address is
// configured; every lookup is a miss.
type Noop struct{}

func (Noop) GetFloat(ctx context.Context, key string) (float64, bool, error) { return 0, false, nil }

func (Noop) SetFloat(ctx context.Context, key string, value float64, ttl time.Duration) error {
	return nil
}

func (Noop) Ping(ctx context.Context) error { return nil }
