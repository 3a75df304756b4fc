package actions_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actions "github.com/goliatone/go-auth-actions"
)

func TestJWTTokenCodecRoundTrip(t *testing.T) {
	codec := newTestCodec()
	now := time.Now().Truncate(time.Second)

	t.Run("verify email", func(t *testing.T) {
		params := tokenParams(now)
		params.RedirectURI = "https://app.example.com/callback"
		token, err := actions.NewVerifyEmailToken(params)
		require.NoError(t, err)

		signed, err := codec.Sign(token)
		require.NoError(t, err)

		decoded, err := codec.Verify(signed)
		require.NoError(t, err)

		assert.Equal(t, token.ID, decoded.ID)
		assert.Equal(t, token.SubjectID, decoded.SubjectID)
		assert.Equal(t, token.Email, decoded.Email)
		assert.Equal(t, token.Audience, decoded.Audience)
		assert.Equal(t, token.RedirectURI, decoded.RedirectURI)
		assert.Equal(t, token.Type(), decoded.Type())
		assert.Equal(t, token.RequiredActions, decoded.RequiredActions)
		assert.True(t, token.IssuedAt.Equal(decoded.IssuedAt))
		assert.True(t, token.ExpiresAt.Equal(decoded.ExpiresAt))
		assert.False(t, decoded.Reanchored())
	})

	t.Run("reanchored execute actions", func(t *testing.T) {
		token, err := actions.NewExecuteActionsToken(tokenParams(now),
			actions.RequiredActionVerifyEmail, actions.RequiredActionUpdatePassword)
		require.NoError(t, err)

		id := actions.CompoundSessionID{RootID: "root", TabID: "tab", ClientID: "com.example.app"}
		require.NoError(t, token.Reanchor(id))

		signed, err := codec.Sign(token)
		require.NoError(t, err)

		decoded, err := codec.Verify(signed)
		require.NoError(t, err)

		got, ok := decoded.CompoundSessionID()
		require.True(t, ok)
		assert.Equal(t, id, got)
		assert.Equal(t, []string{"VERIFY_EMAIL", "UPDATE_PASSWORD"}, decoded.RequiredActions.Strings())
	})
}

func TestJWTTokenCodecExpired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	params := tokenParams(issued)
	token, err := actions.NewVerifyEmailToken(params)
	require.NoError(t, err)

	signed, err := newTestCodec().Sign(token)
	require.NoError(t, err)

	_, err = newTestCodec().Verify(signed)
	assert.True(t, actions.HasTextCode(err, actions.TextCodeTokenExpired))

	past := actions.NewJWTTokenCodec([]byte(testSigningKey), "test-issuer",
		actions.WithCodecClock(func() time.Time { return issued.Add(time.Minute) }),
		actions.WithCodecLogger(nopLogger{}),
	)
	_, err = past.Verify(signed)
	assert.NoError(t, err)
}

func TestJWTTokenCodecBadSignature(t *testing.T) {
	token, err := actions.NewVerifyEmailToken(tokenParams(time.Now()))
	require.NoError(t, err)

	other := actions.NewJWTTokenCodec([]byte("another-key"), "test-issuer", actions.WithCodecLogger(nopLogger{}))
	signed, err := other.Sign(token)
	require.NoError(t, err)

	_, err = newTestCodec().Verify(signed)
	assert.True(t, actions.HasTextCode(err, actions.TextCodeBadSignature))

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, err = newTestCodec().Verify(tampered)
	assert.True(t, actions.HasTextCode(err, actions.TextCodeBadSignature))
}

func TestJWTTokenCodecRejectsForeignTokens(t *testing.T) {
	codec := newTestCodec()

	t.Run("garbage", func(t *testing.T) {
		_, err := codec.Verify("not-a-token")
		assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := actions.NewVerifyEmailToken(tokenParams(time.Now()))
		require.NoError(t, err)
		foreign := actions.NewJWTTokenCodec([]byte(testSigningKey), "someone-else", actions.WithCodecLogger(nopLogger{}))
		signed, err := foreign.Sign(token)
		require.NoError(t, err)

		_, err = codec.Verify(signed)
		assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
	})

	t.Run("unknown token type", func(t *testing.T) {
		claims := jwt.MapClaims{
			"iss": "test-issuer",
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
			"typ": "magic-link",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
		require.NoError(t, err)

		_, err = codec.Verify(signed)
		assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
	})

	t.Run("unknown required action", func(t *testing.T) {
		claims := jwt.MapClaims{
			"iss":  "test-issuer",
			"sub":  "user-1",
			"exp":  time.Now().Add(time.Hour).Unix(),
			"iat":  time.Now().Unix(),
			"typ":  "execute-actions",
			"rqac": []string{"DELETE_ACCOUNT"},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
		require.NoError(t, err)

		_, err = codec.Verify(signed)
		assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := jwt.MapClaims{
			"iss": "test-issuer",
			"sub": "user-1",
			"typ": "verify-email",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
		require.NoError(t, err)

		_, err = codec.Verify(signed)
		assert.True(t, actions.IsVerificationError(err))
	})
}
