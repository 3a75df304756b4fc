package actions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actions "github.com/goliatone/go-auth-actions"
)

func tokenParams(now time.Time) actions.TokenParams {
	return actions.TokenParams{
		SubjectID: "user-1",
		Email:     "jane@example.com",
		Audience:  "account",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestNewVerifyEmailTokenForcesAction(t *testing.T) {
	token, err := actions.NewVerifyEmailToken(tokenParams(time.Now()))
	require.NoError(t, err)

	assert.Equal(t, actions.TokenTypeVerifyEmail, token.Type())
	assert.Equal(t, []string{"VERIFY_EMAIL"}, token.RequiredActions.Strings())
	assert.NotEmpty(t, token.ID)
	assert.False(t, token.Reanchored())
}

func TestNewExecuteActionsToken(t *testing.T) {
	now := time.Now()

	token, err := actions.NewExecuteActionsToken(tokenParams(now), actions.RequiredActionUpdatePassword, actions.RequiredActionUpdatePassword)
	require.NoError(t, err)
	assert.Equal(t, actions.TokenTypeExecuteActions, token.Type())
	assert.Equal(t, []string{"UPDATE_PASSWORD"}, token.RequiredActions.Strings())

	_, err = actions.NewExecuteActionsToken(tokenParams(now))
	assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
}

func TestNewActionTokenValidation(t *testing.T) {
	now := time.Now()

	params := tokenParams(now)
	params.SubjectID = ""
	_, err := actions.NewActionToken(actions.TokenTypeVerifyEmail, params)
	assert.True(t, actions.HasTextCode(err, actions.TextCodeMissingSubject))

	params = tokenParams(now)
	params.ExpiresAt = now
	_, err = actions.NewActionToken(actions.TokenTypeVerifyEmail, params)
	assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))

	_, err = actions.NewActionToken("magic-link", tokenParams(now))
	assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
}

func TestActionTokenReanchorOnce(t *testing.T) {
	token, err := actions.NewVerifyEmailToken(tokenParams(time.Now()))
	require.NoError(t, err)

	err = token.Reanchor(actions.CompoundSessionID{})
	assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
	assert.False(t, token.Reanchored())

	id := actions.CompoundSessionID{RootID: "root", TabID: "tab", ClientID: "account"}
	require.NoError(t, token.Reanchor(id))

	got, ok := token.CompoundSessionID()
	require.True(t, ok)
	assert.Equal(t, id, got)

	err = token.Reanchor(actions.CompoundSessionID{RootID: "other", TabID: "tab", ClientID: "account"})
	assert.True(t, actions.HasTextCode(err, actions.TextCodeSessionAlreadyAnchored))

	got, _ = token.CompoundSessionID()
	assert.Equal(t, "root", got.RootID)
}

func TestActionTokenExpired(t *testing.T) {
	now := time.Now()
	token, err := actions.NewVerifyEmailToken(tokenParams(now))
	require.NoError(t, err)

	assert.False(t, token.Expired(now))
	assert.True(t, token.Expired(now.Add(time.Hour)))
	assert.True(t, token.Expired(now.Add(2*time.Hour)))
}

func TestActionTokenCloneIsIndependent(t *testing.T) {
	token, err := actions.NewExecuteActionsToken(tokenParams(time.Now()),
		actions.RequiredActionVerifyEmail, actions.RequiredActionUpdatePassword)
	require.NoError(t, err)

	clone := token.Clone()
	require.NoError(t, clone.Reanchor(actions.CompoundSessionID{RootID: "r", TabID: "t", ClientID: "c"}))
	clone.RequiredActions[0] = actions.RequiredActionUpdateProfile

	assert.False(t, token.Reanchored())
	assert.Equal(t, actions.RequiredActionVerifyEmail, token.RequiredActions[0])
	assert.Equal(t, token.Type(), clone.Type())
}
