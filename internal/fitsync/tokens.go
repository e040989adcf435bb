package fitsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrNoCredentials = errors.New("no stored credentials")

// TokenStore holds per-provider bearer tokens for sync targets.
type TokenStore interface {
	Load(ctx context.Context, provider string) (string, error)
	Save(ctx context.Context, provider, token string) error
}

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func tokenKey(provider string) string {
	return "fitsync:token:" + provider
}

func (s *RedisTokenStore) Load(ctx context.Context, provider string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("redis not configured")
	}
	token, err := s.client.Get(ctx, tokenKey(provider)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoCredentials
	}
	if err != nil {
		return "", fmt.Errorf("load token for %s: %w", provider, err)
	}
	return token, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, provider, token string) error {
	if s.client == nil {
		return fmt.Errorf("redis not configured")
	}
	// Tokens never expire here; providers rotate them via PUT.
	if err := s.client.Set(ctx, tokenKey(provider), token, 0).Err(); err != nil {
		return fmt.Errorf("save token for %s: %w", provider, err)
	}
	return nil
}
