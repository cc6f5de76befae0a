package artifact

import (
	"context"
	"errors"
	"time"

	// Packages
	redis "github.com/redis/go-redis/v9"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// RedisStore is a Store over a Redis instance.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewRedisStore connects to the Redis instance named by url
// (e.g. "redis://localhost:6379/0").
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) RefreshTTL(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}
