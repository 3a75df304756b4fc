package repository

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	actions "github.com/goliatone/go-auth-actions"
)

const defaultUsedTokenPrefix = "actions:used-token:"

// RedisUsedTokenStore implements actions.UsedTokenStore with SETNX. Keys
// expire together with the token.
type RedisUsedTokenStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ actions.UsedTokenStore = (*RedisUsedTokenStore)(nil)

// NewRedisUsedTokenStore creates a store. An empty prefix uses the default.
func NewRedisUsedTokenStore(client *redis.Client, prefix string) *RedisUsedTokenStore {
	if prefix == "" {
		prefix = defaultUsedTokenPrefix
	}
	return &RedisUsedTokenStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisUsedTokenStore) key(tokenID string) string {
	return s.prefix + tokenID
}

// Consume implements actions.UsedTokenStore.
func (s *RedisUsedTokenStore) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	claimed, err := s.client.SetNX(ctx, s.key(tokenID), s.now().Unix(), ttl).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to record used token")
	}
	return claimed, nil
}

// Consumed implements actions.UsedTokenStore.
func (s *RedisUsedTokenStore) Consumed(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to read used token")
	}
	return n > 0, nil
}

// Release implements actions.UsedTokenStore.
func (s *RedisUsedTokenStore) Release(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, s.key(tokenID)).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to release used token")
	}
	return nil
}
