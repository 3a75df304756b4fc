package actions

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultClientID is used when neither the request nor the config names a client
	DefaultClientID = "account"
	// DefaultAdminActionTokenLifespan applies when the realm config has none
	DefaultAdminActionTokenLifespan = 12 * time.Hour
)

// IssueRequest describes a token to issue for an already resolved subject
type IssueRequest struct {
	Subject         *Subject
	TokenType       TokenType
	RequiredActions []RequiredAction
	RedirectURI     string
	ClientID        string
	Lifespan        time.Duration
}

// ActionTokenIssuer checks issuance preconditions and signs action tokens.
// It has no side effects beyond the codec call.
type ActionTokenIssuer struct {
	config    Config
	clients   ClientRepository
	redirects RedirectValidator
	codec     TokenCodec
	now       func() time.Time
	logger    Logger
}

// IssuerOption customizes the issuer
type IssuerOption func(*ActionTokenIssuer)

// WithIssuerClock injects a custom clock (useful for tests).
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *ActionTokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithIssuerLogger sets the issuer logger
func WithIssuerLogger(logger Logger) IssuerOption {
	return func(i *ActionTokenIssuer) {
		i.logger = normalizeLogger(logger)
	}
}

// NewActionTokenIssuer wires the issuer collaborators
func NewActionTokenIssuer(cfg Config, clients ClientRepository, redirects RedirectValidator, codec TokenCodec, opts ...IssuerOption) *ActionTokenIssuer {
	i := &ActionTokenIssuer{
		config:    cfg,
		clients:   clients,
		redirects: redirects,
		codec:     codec,
		now:       time.Now,
		logger:    defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Issue validates the request, in order, and returns the signed token
// together with the payload it encodes.
func (i *ActionTokenIssuer) Issue(ctx context.Context, req IssueRequest) (string, *ActionToken, error) {
	subject := req.Subject
	if subject == nil || subject.ID == "" {
		return "", nil, ErrMissingSubject.Clone()
	}

	if subject.Email == "" {
		return "", nil, newError(ErrMissingEmail, map[string]any{"subject_id": subject.ID})
	}

	if !subject.Enabled {
		return "", nil, newError(ErrSubjectDisabled, map[string]any{"subject_id": subject.ID})
	}

	if req.RedirectURI != "" && req.ClientID == "" {
		return "", nil, newError(ErrMissingClientForRedirect, map[string]any{
			"redirect_uri": req.RedirectURI,
		})
	}

	client, err := i.resolveClient(ctx, req.ClientID)
	if err != nil {
		return "", nil, err
	}

	redirect := ""
	if req.RedirectURI != "" {
		normalized, ok := i.redirects.VerifyRedirectURI(ctx, req.RedirectURI, client)
		if !ok {
			return "", nil, newError(ErrInvalidRedirect, map[string]any{
				"redirect_uri": req.RedirectURI,
				"client_id":    client.ClientID,
			})
		}
		redirect = normalized
	}

	now := i.now()
	params := TokenParams{
		SubjectID:   subject.ID,
		Email:       subject.Email,
		Audience:    client.ClientID,
		RedirectURI: redirect,
		IssuedAt:    now,
		ExpiresAt:   now.Add(i.lifespan(req.Lifespan)),
	}

	tokenType := req.TokenType
	if tokenType == "" {
		tokenType = TokenTypeExecuteActions
	}

	token, err := NewActionToken(tokenType, params, req.RequiredActions...)
	if err != nil {
		return "", nil, err
	}

	signed, err := i.codec.Sign(token)
	if err != nil {
		i.logger.Error("failed to sign %s token for %s: %v", token.Type(), subject.ID, err)
		return "", nil, err
	}

	return signed, token, nil
}

// Lifespan returns the effective token lifespan for a requested one
func (i *ActionTokenIssuer) Lifespan(requested time.Duration) time.Duration {
	return i.lifespan(requested)
}

func (i *ActionTokenIssuer) lifespan(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	if i.config != nil {
		if configured := i.config.GetAdminActionTokenLifespan(); configured > 0 {
			return configured
		}
	}
	return DefaultAdminActionTokenLifespan
}

func (i *ActionTokenIssuer) resolveClient(ctx context.Context, clientID string) (*Client, error) {
	if clientID == "" && i.config != nil {
		clientID = i.config.GetDefaultClientID()
	}
	if clientID == "" {
		clientID = DefaultClientID
	}

	client, err := i.clients.FindClient(ctx, clientID)
	if err != nil {
		if HasTextCode(err, TextCodeUnknownClient) {
			return nil, newError(ErrUnknownClient, map[string]any{"client_id": clientID})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve client")
	}

	if client == nil {
		return nil, newError(ErrUnknownClient, map[string]any{"client_id": clientID})
	}

	if !client.Enabled {
		return nil, newError(ErrClientDisabled, map[string]any{"client_id": clientID})
	}

	return client, nil
}
