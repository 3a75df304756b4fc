package actions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actions "github.com/goliatone/go-auth-actions"
)

func TestMemorySessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := actions.NewMemorySessionStore(0)

	session := actions.NewAuthenticationSession("user-1", "account")
	session.RequiredActions = actions.NewRequiredActionSet(actions.RequiredActionUpdatePassword)
	require.NoError(t, store.SaveSession(ctx, session))
	assert.Equal(t, 1, store.Len())

	got, err := store.GetSession(ctx, session.CompoundID())
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.SubjectID)
	assert.Equal(t, "account", got.ClientID)

	got.RequiredActions[0] = actions.RequiredActionConfigureTOTP
	again, err := store.GetSession(ctx, session.CompoundID())
	require.NoError(t, err)
	assert.Equal(t, actions.RequiredActionUpdatePassword, again.RequiredActions[0], "reads return copies")

	require.NoError(t, store.RemoveSession(ctx, session.CompoundID()))
	_, err = store.GetSession(ctx, session.CompoundID())
	assert.True(t, actions.HasTextCode(err, actions.TextCodeSessionNotFound))
	assert.Equal(t, 0, store.Len())
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := actions.NewMemorySessionStore(time.Minute).WithClock(func() time.Time { return now })

	session := actions.NewAuthenticationSession("user-1", "account")
	session.CreatedAt = now
	require.NoError(t, store.SaveSession(ctx, session))

	_, err := store.GetSession(ctx, session.CompoundID())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.GetSession(ctx, session.CompoundID())
	assert.True(t, actions.HasTextCode(err, actions.TextCodeSessionNotFound))
}

func TestMemorySessionStoreRejectsNil(t *testing.T) {
	store := actions.NewMemorySessionStore(0)
	assert.Error(t, store.SaveSession(context.Background(), nil))
}
