package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actions "github.com/goliatone/go-auth-actions"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "master", cfg.GetRealm())
	assert.Equal(t, "account", cfg.GetDefaultClientID())
	assert.Equal(t, 12*time.Hour, cfg.GetAdminActionTokenLifespan())
	assert.Equal(t, actions.TokenTypeVerifyEmail, cfg.GetVerifyEmailTokenType())
	assert.Equal(t, 30*time.Second, cfg.Kafka.Timeout)
	assert.Empty(t, cfg.Kafka.AdminTopic)
	assert.Contains(t, cfg.Kafka.IncludedEvents, "VERIFY_EMAIL")
	assert.Equal(t, "all", cfg.Kafka.Properties["required_acks"])
	assert.False(t, cfg.Admin.Enabled)
	assert.Equal(t, "manage-users", cfg.Admin.RequiredRole)
	assert.Equal(t, "HS256", cfg.Admin.SigningMethod)

	clients := cfg.ActionClients()
	require.Len(t, clients, 1)
	assert.Equal(t, "account", clients[0].ClientID)
	assert.True(t, clients[0].Enabled)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
realm:
  name: "acme"
  admin_action_token_lifespan: 30m
  verify_email_token_type: "execute-actions"
kafka:
  admin_topic: "identity.admin"
`), 0o600))

	t.Setenv("ACTIONS_REALM_BASE_URL", "https://id.acme.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.GetRealm())
	assert.Equal(t, "https://id.acme.test", cfg.GetBaseURL())
	assert.Equal(t, 30*time.Minute, cfg.GetAdminActionTokenLifespan())
	assert.Equal(t, actions.TokenTypeExecuteActions, cfg.GetVerifyEmailTokenType())
	assert.Equal(t, "identity.admin", cfg.Kafka.AdminTopic)
	assert.Equal(t, "identity.events", cfg.Kafka.DomainTopic, "defaults survive the merge")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateSigningKey(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, PlaceholderSigningKey, cfg.Token.SigningKey)

	assert.True(t, cfg.InsecureSigningKey())
	assert.ErrorIs(t, cfg.Validate(), ErrInsecureSigningKey)

	cfg.HTTP.Debug = true
	assert.NoError(t, cfg.Validate(), "debug mode accepts the placeholder")

	cfg.HTTP.Debug = false
	cfg.Token.SigningKey = "  "
	assert.ErrorIs(t, cfg.Validate(), ErrInsecureSigningKey)

	t.Setenv("ACTIONS_TOKEN_SIGNING_KEY", "s3cr3t-signing-key")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.False(t, cfg.InsecureSigningKey())
	assert.NoError(t, cfg.Validate())
}
