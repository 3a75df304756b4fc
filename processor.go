package actions

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// ProcessRequest is a click on an action link
type ProcessRequest struct {
	Key string
	// BrowserSession is the encoded compound id of a session the browser
	// already holds, if any
	BrowserSession string
}

// ActionTokenProcessor is the entry point of the verification side. It
// verifies the key, resolves subject, client and session, and hands the
// token to the handler registered for its type.
type ActionTokenProcessor struct {
	codec    TokenCodec
	subjects SubjectRepository
	clients  ClientRepository
	sessions SessionStore
	used     UsedTokenStore
	handlers map[TokenType]*ActionTokenHandler
	logger   Logger
}

// ProcessorOption customizes the processor
type ProcessorOption func(*ActionTokenProcessor)

// WithProcessorLogger sets the processor logger
func WithProcessorLogger(logger Logger) ProcessorOption {
	return func(p *ActionTokenProcessor) {
		p.logger = normalizeLogger(logger)
	}
}

// WithUsedTokenStore sets where completed tokens are recorded
func WithUsedTokenStore(store UsedTokenStore) ProcessorOption {
	return func(p *ActionTokenProcessor) {
		if store != nil {
			p.used = store
		}
	}
}

// WithHandler registers a handler for its token type
func WithHandler(handler *ActionTokenHandler) ProcessorOption {
	return func(p *ActionTokenProcessor) {
		if handler != nil {
			p.handlers[handler.TokenType()] = handler
		}
	}
}

// NewActionTokenProcessor wires the processor collaborators
func NewActionTokenProcessor(codec TokenCodec, subjects SubjectRepository, clients ClientRepository, sessions SessionStore, opts ...ProcessorOption) *ActionTokenProcessor {
	p := &ActionTokenProcessor{
		codec:    codec,
		subjects: subjects,
		clients:  clients,
		sessions: sessions,
		used:     NewMemoryUsedTokenStore(),
		handlers: make(map[TokenType]*ActionTokenHandler),
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Process runs one verification step for the given key
func (p *ActionTokenProcessor) Process(ctx context.Context, req ProcessRequest) (*Outcome, error) {
	if req.Key == "" {
		return nil, newError(ErrInvalidToken, map[string]any{"reason": "missing key"})
	}

	token, err := p.codec.Verify(req.Key)
	if err != nil {
		return nil, err
	}

	handler, ok := p.handlers[token.Type()]
	if !ok {
		p.logger.Warn("no handler registered for %s tokens", token.Type())
		return nil, newError(ErrInvalidToken, map[string]any{"token_type": token.Type()})
	}

	used, err := p.used.Consumed(ctx, token.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token use")
	}
	if used {
		return nil, errTokenUsed(token)
	}

	subject, err := p.loadSubject(ctx, token.SubjectID)
	if err != nil {
		return nil, err
	}

	session, fresh, err := p.resolveSession(ctx, token, req.BrowserSession)
	if err != nil {
		return nil, err
	}

	client, err := p.loadClient(ctx, session.ClientID)
	if err != nil {
		p.discard(ctx, session, fresh)
		return nil, err
	}

	// a click on an existing session finalizes, claim the token first
	if !fresh {
		claimed, err := p.used.Consume(ctx, token.ID, token.ExpiresAt)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record token use")
		}
		if !claimed {
			return nil, errTokenUsed(token)
		}
	}

	outcome, err := handler.Handle(ctx, token, &ActionContext{
		Subject: subject,
		Client:  client,
		Session: session,
		Fresh:   fresh,
	})
	if err != nil {
		p.discard(ctx, session, fresh)
		p.release(ctx, token, fresh)
		return nil, err
	}

	return outcome, nil
}

func errTokenUsed(token *ActionToken) error {
	return newError(ErrInvalidToken, map[string]any{
		"reason":   "token already used",
		"token_id": token.ID,
	})
}

func (p *ActionTokenProcessor) release(ctx context.Context, token *ActionToken, fresh bool) {
	if fresh {
		return
	}
	if err := p.used.Release(ctx, token.ID); err != nil {
		p.logger.Warn("failed to release token %s: %v", token.ID, err)
	}
}

func (p *ActionTokenProcessor) loadSubject(ctx context.Context, id string) (*Subject, error) {
	subject, err := p.subjects.FindSubject(ctx, id)
	if err != nil {
		if HasTextCode(err, TextCodeUnknownSubject) {
			return nil, newError(ErrUnknownSubject, map[string]any{"subject_id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load subject")
	}
	if subject == nil {
		return nil, newError(ErrUnknownSubject, map[string]any{"subject_id": id})
	}
	if !subject.Enabled {
		return nil, newError(ErrSubjectDisabled, map[string]any{"subject_id": id})
	}
	return subject, nil
}

func (p *ActionTokenProcessor) loadClient(ctx context.Context, clientID string) (*Client, error) {
	client, err := p.clients.FindClient(ctx, clientID)
	if err != nil {
		if HasTextCode(err, TextCodeUnknownClient) {
			return nil, newError(ErrUnknownClient, map[string]any{"client_id": clientID})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load client")
	}
	if client == nil {
		return nil, newError(ErrUnknownClient, map[string]any{"client_id": clientID})
	}
	if !client.Enabled {
		return nil, newError(ErrClientDisabled, map[string]any{"client_id": clientID})
	}
	return client, nil
}

// resolveSession returns the session backing this click and whether it was
// created for it. A reanchored token must find its own session.
func (p *ActionTokenProcessor) resolveSession(ctx context.Context, token *ActionToken, browser string) (*AuthenticationSession, bool, error) {
	if id, ok := token.CompoundSessionID(); ok {
		session, err := p.sessions.GetSession(ctx, id)
		if err != nil {
			if HasTextCode(err, TextCodeSessionNotFound) {
				return nil, false, newError(ErrInvalidToken, map[string]any{
					"reason":  "authentication session no longer exists",
					"root_id": id.RootID,
				})
			}
			return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load authentication session")
		}
		if session.SubjectID != token.SubjectID {
			return nil, false, newError(ErrInvalidToken, map[string]any{
				"reason": "authentication session belongs to another subject",
			})
		}
		return session, false, nil
	}

	if browser != "" {
		if session := p.browserSession(ctx, token, browser); session != nil {
			return session, false, nil
		}
	}

	session := NewAuthenticationSession(token.SubjectID, token.Audience)
	if err := p.sessions.SaveSession(ctx, session); err != nil {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create authentication session")
	}
	return session, true, nil
}

func (p *ActionTokenProcessor) browserSession(ctx context.Context, token *ActionToken, encoded string) *AuthenticationSession {
	id, err := DecodeCompoundSessionID(encoded)
	if err != nil {
		p.logger.Debug("ignoring malformed browser session: %v", err)
		return nil
	}

	session, err := p.sessions.GetSession(ctx, id)
	if err != nil {
		p.logger.Debug("browser session %s not usable: %v", id.RootID, err)
		return nil
	}

	if session.SubjectID != token.SubjectID || session.ClientID != token.Audience {
		return nil
	}
	return session
}

func (p *ActionTokenProcessor) discard(ctx context.Context, session *AuthenticationSession, fresh bool) {
	if !fresh || session == nil {
		return
	}
	if err := p.sessions.RemoveSession(ctx, session.CompoundID()); err != nil {
		p.logger.Warn("failed to discard authentication session %s: %v", session.RootID, err)
	}
}
