package actions

import (
	"context"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-actions/internal/metrics"
)

// ActionContext is what the verification side knows about the click
type ActionContext struct {
	Subject *Subject
	Client  *Client
	Session *AuthenticationSession
	// Fresh is true when Session was created to service this click
	Fresh bool
}

// OutcomeKind tells the HTTP glue how to answer
type OutcomeKind string

const (
	OutcomeRedirect OutcomeKind = "redirect"
	OutcomePage     OutcomeKind = "page"
)

const (
	PageEmailVerified = "email-verified"
	PageStaleLink     = "stale-link"
)

// Page is a static page rendered by the HTTP glue
type Page struct {
	Name    string
	Status  int
	Message string
}

// Outcome is the result of a verification step
type Outcome struct {
	Path     []State
	Kind     OutcomeKind
	Location string
	Page     *Page
}

// State returns the terminal state reached
func (o *Outcome) State() State {
	if o == nil || len(o.Path) == 0 {
		return ""
	}
	return o.Path[len(o.Path)-1]
}

// HandlerConfig selects the behavior of a handler variant
type HandlerConfig struct {
	TokenType TokenType
	// Owns is the single required action removed on finalization
	Owns RequiredAction
	// ConfirmAfterReanchor shows the confirmation page on a reanchored flow
	// without a caller redirect instead of continuing with the session
	ConfirmAfterReanchor bool
	// PromoteTokenActions copies the token's other actions onto the session
	PromoteTokenActions bool
	SuccessEvent        ActivityEventType
}

// VerifyEmailHandlerConfig handles dedicated verify email tokens
func VerifyEmailHandlerConfig() HandlerConfig {
	return HandlerConfig{
		TokenType:            TokenTypeVerifyEmail,
		Owns:                 RequiredActionVerifyEmail,
		ConfirmAfterReanchor: true,
		SuccessEvent:         ActivityEventVerifyEmail,
	}
}

// ExecuteActionsHandlerConfig handles execute actions tokens
func ExecuteActionsHandlerConfig() HandlerConfig {
	return HandlerConfig{
		TokenType:           TokenTypeExecuteActions,
		Owns:                RequiredActionVerifyEmail,
		PromoteTokenActions: true,
		SuccessEvent:        ActivityEventExecuteActions,
	}
}

// ActionTokenHandler runs the verification state machine for one token type
type ActionTokenHandler struct {
	config       HandlerConfig
	subjects     SubjectRepository
	sessions     SessionStore
	codec        TokenCodec
	redirects    RedirectValidator
	links        LinkBuilder
	realm        string
	activitySink ActivitySink
	logger       Logger
}

// HandlerOption customizes the handler
type HandlerOption func(*ActionTokenHandler)

// WithHandlerActivitySink sets the sink that receives success events
func WithHandlerActivitySink(sink ActivitySink) HandlerOption {
	return func(h *ActionTokenHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

// WithHandlerLogger sets the handler logger
func WithHandlerLogger(logger Logger) HandlerOption {
	return func(h *ActionTokenHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// NewActionTokenHandler wires a handler variant
func NewActionTokenHandler(hc HandlerConfig, cfg Config, subjects SubjectRepository, sessions SessionStore, codec TokenCodec, redirects RedirectValidator, opts ...HandlerOption) *ActionTokenHandler {
	h := &ActionTokenHandler{
		config:       hc,
		subjects:     subjects,
		sessions:     sessions,
		codec:        codec,
		redirects:    redirects,
		links:        LinkBuilder{BaseURL: cfg.GetBaseURL(), Realm: cfg.GetRealm()},
		realm:        cfg.GetRealm(),
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// TokenType returns the token type this handler accepts
func (h *ActionTokenHandler) TokenType() TokenType {
	return h.config.TokenType
}

// Handle verifies the token against the context and performs either the
// first hop reanchoring or the second hop finalization.
func (h *ActionTokenHandler) Handle(ctx context.Context, token *ActionToken, actx *ActionContext) (*Outcome, error) {
	path := statePath{StatePresented}

	if token != nil && token.Type() != h.config.TokenType {
		h.countVerification(token, StateRejected)
		return nil, newError(ErrInvalidToken, map[string]any{
			"token_type": token.Type(),
			"handler":    h.config.TokenType,
		})
	}

	if err := verifyToken(token, actx); err != nil {
		h.logger.Warn("action token rejected: %v", err)
		h.countVerification(token, StateRejected)
		return nil, err
	}

	path, _ = path.advance(StateVerified)

	next := nextAfterVerified(actx.Fresh)
	path, ok := path.advance(next)
	if !ok {
		return nil, goerrors.New("invalid verification transition", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"from": path.current(), "to": next})
	}

	var (
		outcome *Outcome
		err     error
	)
	if next == StateReanchored {
		outcome, err = h.reanchor(token, actx, path)
	} else {
		outcome, err = h.finalize(ctx, token, actx, path)
	}
	if err != nil {
		return nil, err
	}

	h.countVerification(token, outcome.State())
	return outcome, nil
}

// reanchor binds a copy of the token to the session and sends the browser
// back to the action endpoint with it. Nothing is mutated.
func (h *ActionTokenHandler) reanchor(token *ActionToken, actx *ActionContext, path statePath) (*Outcome, error) {
	if actx.Session == nil {
		return nil, goerrors.New("fresh flow without authentication session", goerrors.CategoryInternal)
	}

	bound := token.Clone()
	id := actx.Session.CompoundID()
	if err := bound.Reanchor(id); err != nil {
		return nil, err
	}

	signed, err := h.codec.Sign(bound)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("reanchored %s token %s to session %s", bound.Type(), bound.ID, id.RootID)

	return &Outcome{
		Path:     path,
		Kind:     OutcomeRedirect,
		Location: h.links.ReanchorURL(signed, id),
	}, nil
}

func (h *ActionTokenHandler) finalize(ctx context.Context, token *ActionToken, actx *ActionContext, path statePath) (*Outcome, error) {
	subject := actx.Subject
	owned := h.config.Owns

	if token.RequiredActions.Contains(RequiredActionVerifyEmail) {
		if err := h.subjects.MarkEmailVerified(ctx, subject.ID); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
		}
		subject.EmailVerified = true
	}

	if owned != "" && token.RequiredActions.Contains(owned) {
		if err := h.subjects.RemoveRequiredAction(ctx, subject.ID, owned); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove required action")
		}
		subject.RequiredActions = subject.RequiredActions.Remove(owned)
	}

	session := actx.Session
	if session != nil {
		session.RequiredActions = session.RequiredActions.Remove(owned)
		if h.config.PromoteTokenActions {
			for _, action := range token.RequiredActions {
				if action != owned {
					session.RequiredActions = session.RequiredActions.Add(action)
				}
			}
		}
		if err := h.sessions.SaveSession(ctx, session); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update authentication session")
		}
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType: h.config.SuccessEvent,
		Category:  ActivityCategoryDomain,
		Realm:     h.realm,
		Actor:     ActorRef{ID: subject.ID, Type: "user"},
		SubjectID: subject.ID,
		ClientID:  token.Audience,
		Metadata: map[string]any{
			"token_id":         token.ID,
			"token_type":       string(token.Type()),
			"required_actions": token.RequiredActions.Strings(),
			"email":            subject.Email,
		},
	})

	in := redirectInput{
		HasRedirect:          token.RedirectURI != "",
		Reanchored:           token.Reanchored(),
		ConfirmAfterReanchor: h.config.ConfirmAfterReanchor,
	}

	redirect := ""
	if in.HasRedirect {
		normalized, ok := h.redirects.VerifyRedirectURI(ctx, token.RedirectURI, actx.Client)
		if ok {
			redirect = normalized
			in.RedirectValid = true
		} else {
			h.logger.Warn("redirect %q no longer valid for client %s, ignoring", token.RedirectURI, token.Audience)
		}
	}

	if session != nil {
		if len(session.RequiredActions) > 0 {
			in.NextAction = session.RequiredActions[0]
		}
		in.SessionRedirect = session.RedirectURI
	}

	decision := resolveRedirect(in)
	h.logger.Debug("finalized %s token %s: %s", token.Type(), token.ID, decision)

	switch decision {
	case decisionCallerRedirect:
		h.dropReanchoredSession(ctx, token, session)
		return &Outcome{Path: path, Kind: OutcomeRedirect, Location: WithEmailVerified(redirect)}, nil
	case decisionRequiredAction:
		return &Outcome{Path: path, Kind: OutcomeRedirect, Location: h.links.RequiredActionURL(in.NextAction, session.CompoundID())}, nil
	case decisionSessionRedirect:
		h.removeSession(ctx, session)
		return &Outcome{Path: path, Kind: OutcomeRedirect, Location: session.RedirectURI}, nil
	}

	h.removeSession(ctx, session)
	return &Outcome{
		Path: path,
		Kind: OutcomePage,
		Page: &Page{
			Name:    PageEmailVerified,
			Status:  http.StatusOK,
			Message: "Your email address has been verified.",
		},
	}, nil
}

// dropReanchoredSession ends a session that only existed for this link
func (h *ActionTokenHandler) dropReanchoredSession(ctx context.Context, token *ActionToken, session *AuthenticationSession) {
	if token.Reanchored() {
		h.removeSession(ctx, session)
	}
}

func (h *ActionTokenHandler) removeSession(ctx context.Context, session *AuthenticationSession) {
	if session == nil {
		return
	}
	if err := h.sessions.RemoveSession(ctx, session.CompoundID()); err != nil {
		h.logger.Warn("failed to remove authentication session %s: %v", session.RootID, err)
	}
}

func (h *ActionTokenHandler) countVerification(token *ActionToken, state State) {
	tokenType := h.config.TokenType
	if token != nil {
		tokenType = token.Type()
	}
	metrics.VerificationsTotal.WithLabelValues(string(tokenType), string(state)).Inc()
}
