package repository

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	actions "github.com/goliatone/go-auth-actions"
)

const defaultSessionPrefix = "actions:auth-session:"

// RedisSessionStore implements actions.SessionStore on Redis. Every write
// refreshes the session TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ actions.SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore creates a store. An empty prefix uses the default.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisSessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) key(id actions.CompoundSessionID) string {
	return s.prefix + id.Encode()
}

// GetSession implements actions.SessionStore.
func (s *RedisSessionStore) GetSession(ctx context.Context, id actions.CompoundSessionID) (*actions.AuthenticationSession, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return nil, actions.ErrSessionNotFound.Clone().WithMetadata(map[string]any{
				"root_id": id.RootID,
				"tab_id":  id.TabID,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to read authentication session")
	}

	var session actions.AuthenticationSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode authentication session")
	}
	return &session, nil
}

// SaveSession implements actions.SessionStore.
func (s *RedisSessionStore) SaveSession(ctx context.Context, session *actions.AuthenticationSession) error {
	if session == nil {
		return goerrors.New("session must not be nil", goerrors.CategoryInternal)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode authentication session")
	}

	if err := s.client.Set(ctx, s.key(session.CompoundID()), raw, s.ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to store authentication session")
	}
	return nil
}

// RemoveSession implements actions.SessionStore.
func (s *RedisSessionStore) RemoveSession(ctx context.Context, id actions.CompoundSessionID) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to remove authentication session")
	}
	return nil
}
