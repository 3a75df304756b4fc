package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actions "github.com/goliatone/go-auth-actions"
)

func TestMailerSendDeliversOnce(t *testing.T) {
	var delivered []Envelope
	transport := TransportFunc(func(_ context.Context, env Envelope) error {
		delivered = append(delivered, env)
		return nil
	})

	mailer := NewMailer("no-reply@example.com", nil, transport, nil)
	require.NoError(t, mailer.Send(context.Background(), testMessage(actions.EmailTemplateVerifyEmail)))

	require.Len(t, delivered, 1)
	assert.Equal(t, "no-reply@example.com", delivered[0].From)
	assert.Equal(t, "jane@example.com", delivered[0].To)
	assert.Equal(t, "Verify your email for master", delivered[0].Subject)
	assert.NotEmpty(t, delivered[0].Text)
	assert.NotEmpty(t, delivered[0].HTML)
}

func TestMailerSendTransportFailure(t *testing.T) {
	calls := 0
	transport := TransportFunc(func(context.Context, Envelope) error {
		calls++
		return errors.New("connection refused")
	})

	mailer := NewMailer("no-reply@example.com", NewRenderer(), transport, nil)
	err := mailer.Send(context.Background(), testMessage(actions.EmailTemplatePasswordReset))
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestMailerSendRequiresRecipient(t *testing.T) {
	mailer := NewMailer("no-reply@example.com", nil, TransportFunc(func(context.Context, Envelope) error {
		t.Fatal("transport must not be called")
		return nil
	}), nil)

	msg := testMessage(actions.EmailTemplateVerifyEmail)
	msg.Subject.Email = ""
	assert.Error(t, mailer.Send(context.Background(), msg))
}

func TestNewSMTPTransportDefaults(t *testing.T) {
	_, err := NewSMTPTransport(SMTPConfig{})
	assert.Error(t, err)

	transport, err := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com"})
	require.NoError(t, err)
	assert.Equal(t, 587, transport.config.Port)
	assert.Equal(t, 15*time.Second, transport.config.Timeout)
	assert.NotEmpty(t, transport.clientOptions())
}
