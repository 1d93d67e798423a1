package marker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "grindlog:digest:last_run"

type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(redisURL, key string) (*RedisStore, error) {
	url := strings.TrimSpace(redisURL)
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisStoreWithClient(client, key), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	k := strings.TrimSpace(key)
	if k == "" {
		k = DefaultRedisKey
	}
	return &RedisStore{client: client, key: k}
}

func (s *RedisStore) Read(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse marker %s: %w", s.key, err)
	}
	return at, true, nil
}

func (s *RedisStore) Write(ctx context.Context, at time.Time) error {
	if at.IsZero() {
		return errors.New("marker time is zero")
	}
	return s.client.Set(ctx, s.key, at.UTC().Format(time.RFC3339Nano), 0).Err()
}

func (s *RedisStore) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
