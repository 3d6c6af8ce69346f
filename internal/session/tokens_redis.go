package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTokenStore shares one login between several terminals of the shop.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisTokenStore stores keys as <prefix>:access_token and
// <prefix>:refresh_token. A zero ttl keeps them until Clear.
func NewRedisTokenStore(client *redis.Client, prefix string, ttl time.Duration) *RedisTokenStore {
	if prefix == "" {
		prefix = "shreemohan:session"
	}
	return &RedisTokenStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisTokenStore) key(name string) string { return s.prefix + ":" + name }

func (s *RedisTokenStore) Load(ctx context.Context) (Tokens, error) {
	vals, err := s.client.MGet(ctx, s.key(KeyAccessToken), s.key(KeyRefreshToken)).Result()
	if err != nil {
		return Tokens{}, fmt.Errorf("load tokens: %w", err)
	}

	var t Tokens
	if v, ok := vals[0].(string); ok {
		t.Access = v
	}
	if v, ok := vals[1].(string); ok {
		t.Refresh = v
	}
	return t, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, t Tokens) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(KeyAccessToken), t.Access, s.ttl)
	if t.Refresh != "" {
		pipe.Set(ctx, s.key(KeyRefreshToken), t.Refresh, s.ttl)
	} else {
		pipe.Del(ctx, s.key(KeyRefreshToken))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(KeyAccessToken), s.key(KeyRefreshToken)).Err(); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}
