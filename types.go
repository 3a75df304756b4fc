package actions

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds realm level options used when issuing and processing action tokens
type Config interface {
	GetRealm() string
	GetBaseURL() string
	GetDefaultClientID() string
	GetAdminActionTokenLifespan() time.Duration
	GetVerifyEmailTokenType() TokenType
}

// SubjectRepository resolves and mutates the accounts action tokens are issued for.
// FindSubject returns ErrUnknownSubject when no record matches.
type SubjectRepository interface {
	FindSubject(ctx context.Context, id string) (*Subject, error)
	SearchSubjects(ctx context.Context, attribute, value string) ([]*Subject, error)
	MarkEmailVerified(ctx context.Context, id string) error
	RemoveRequiredAction(ctx context.Context, id string, action RequiredAction) error
}

// ClientRepository resolves clients by their public client id.
// FindClient returns ErrUnknownClient when no record matches.
type ClientRepository interface {
	FindClient(ctx context.Context, clientID string) (*Client, error)
}

// RedirectValidator checks a candidate redirect against the URIs registered
// for a client. It returns the normalized URI and true when it is allowed.
type RedirectValidator interface {
	VerifyRedirectURI(ctx context.Context, redirectURI string, client *Client) (string, bool)
}

// TokenCodec serializes action tokens to compact signed strings and back.
type TokenCodec interface {
	Sign(token *ActionToken) (string, error)
	Verify(signed string) (*ActionToken, error)
}

// Mailer delivers action emails. Rendering and transport live behind it.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailTemplate names the template used for an action email
type EmailTemplate string

const (
	EmailTemplateVerifyEmail   EmailTemplate = "verify-email"
	EmailTemplatePasswordReset EmailTemplate = "password-reset"
)

// EmailMessage is everything a Mailer needs to render and send an action email
type EmailMessage struct {
	Template          EmailTemplate
	Realm             string
	Subject           *Subject
	Link              string
	ExpirationMinutes int64
	RequiredActions   []RequiredAction
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACTIONS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACTIONS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACTIONS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACTIONS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(logger Logger) Logger {
	if logger == nil {
		return defLogger{}
	}
	return logger
}
