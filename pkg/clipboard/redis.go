package clipboard

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

// RedisConfig holds connection settings for RedisBackend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisBackend stores entries in Redis with native key expiry.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "connect to redis at %s", cfg.Addr)
	}
	return &RedisBackend{client: client}, nil
}

func (*RedisBackend) Name() string { return "redis" }

// Get retrieves a value. Connection failures are retryable.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "redis get"))
	}
	return data, true, nil
}

// Set stores a value with Redis-side expiry.
func (r *RedisBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "redis set"))
	}
	return nil
}

// Delete removes a value.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "redis del")
	}
	return nil
}

// Close closes the client.
func (r *RedisBackend) Close() error { return r.client.Close() }

var _ Backend = (*RedisBackend)(nil)
