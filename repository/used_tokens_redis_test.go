package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsedTokenStore(t *testing.T, now time.Time) (*RedisUsedTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisUsedTokenStore(client, "")
	store.now = func() time.Time { return now }
	return store, mr
}

func TestRedisUsedTokenStoreConsume(t *testing.T) {
	now := time.Now()
	store, mr := setupUsedTokenStore(t, now)
	ctx := context.Background()

	claimed, err := store.Consume(ctx, "tok-1", now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 10*time.Minute, mr.TTL(defaultUsedTokenPrefix+"tok-1"))

	claimed, err = store.Consume(ctx, "tok-1", now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, claimed)

	used, err := store.Consumed(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, used)

	mr.FastForward(11 * time.Minute)
	used, err = store.Consumed(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, used, "entries expire with the token")
}

func TestRedisUsedTokenStoreRelease(t *testing.T) {
	now := time.Now()
	store, _ := setupUsedTokenStore(t, now)
	ctx := context.Background()

	_, err := store.Consume(ctx, "tok-1", now.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "tok-1"))

	claimed, err := store.Consume(ctx, "tok-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisUsedTokenStoreExpiredTokenKeepsMinimumTTL(t *testing.T) {
	now := time.Now()
	store, mr := setupUsedTokenStore(t, now)

	claimed, err := store.Consume(context.Background(), "tok-1", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, time.Second, mr.TTL(defaultUsedTokenPrefix+"tok-1"))
}

func TestRedisUsedTokenStoreServerDown(t *testing.T) {
	store, mr := setupUsedTokenStore(t, time.Now())
	mr.Close()

	_, err := store.Consume(context.Background(), "tok-1", time.Now().Add(time.Minute))
	assert.Error(t, err)
	_, err = store.Consumed(context.Background(), "tok-1")
	assert.Error(t, err)
}
