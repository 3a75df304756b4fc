package actions_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actions "github.com/goliatone/go-auth-actions"
)

func TestCompoundSessionIDRoundTrip(t *testing.T) {
	tests := []actions.CompoundSessionID{
		{RootID: "root", TabID: "tab", ClientID: "account"},
		{RootID: "r1", TabID: "t1", ClientID: "com.example.mobile"},
	}

	for _, id := range tests {
		t.Run(id.ClientID, func(t *testing.T) {
			encoded := id.Encode()
			assert.NotContains(t, encoded, "=")
			assert.Equal(t, encoded, id.String())

			decoded, err := actions.DecodeCompoundSessionID(encoded)
			require.NoError(t, err)
			assert.Equal(t, id, decoded)
		})
	}
}

func TestDecodeCompoundSessionIDRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"not base64":   "***",
		"two parts":    base64.RawURLEncoding.EncodeToString([]byte("root.tab")),
		"empty client": base64.RawURLEncoding.EncodeToString([]byte("root.tab.")),
		"empty":        "",
	}

	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := actions.DecodeCompoundSessionID(encoded)
			assert.True(t, actions.HasTextCode(err, actions.TextCodeInvalidToken))
		})
	}
}

func TestCompoundSessionIDIsZero(t *testing.T) {
	assert.True(t, actions.CompoundSessionID{}.IsZero())
	assert.False(t, actions.CompoundSessionID{ClientID: "account"}.IsZero())
}
