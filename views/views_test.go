package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmailVerified(t *testing.T) {
	html, err := NewRenderer().Render(EmailVerified, map[string]any{
		"realm":   "master",
		"message": "Your email address has been verified.",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Email verified</h1>")
	assert.Contains(t, html, "Your email address has been verified.")
	assert.Contains(t, html, "master")
}

func TestRenderStaleLinkEscapesData(t *testing.T) {
	html, err := NewRenderer().Render(StaleLink, map[string]any{
		"realm":     "master",
		"message":   "<script>alert(1)</script>",
		"text_code": "TOKEN_EXPIRED",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "TOKEN_EXPIRED")
	assert.NotContains(t, html, "<script>")
}

func TestRenderUnknownPage(t *testing.T) {
	_, err := NewRenderer().Render("missing", nil)
	assert.Error(t, err)
}
