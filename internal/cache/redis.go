package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

var _ Store = (*RedisStore)(nil)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Prefix   string // prepended to every key
}

// RedisStore shares entries between processes. Keys carry no TTL.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (s *RedisStore) Put(ctx context.Context, key string, blob []byte) error {
	return s.client.Set(ctx, s.prefix+key, blob, 0).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
