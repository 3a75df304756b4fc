package actions

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenType identifies the kind of action token
type TokenType string

const (
	// TokenTypeVerifyEmail is the dedicated verify email token
	TokenTypeVerifyEmail TokenType = "verify-email"
	// TokenTypeExecuteActions carries an explicit set of required actions
	TokenTypeExecuteActions TokenType = "execute-actions"
)

// Valid reports whether t is a known token type
func (t TokenType) Valid() bool {
	return t == TokenTypeVerifyEmail || t == TokenTypeExecuteActions
}

// ActionToken is the payload of a signed action link. The type is fixed at
// construction and the compound session id can only be set once.
type ActionToken struct {
	ID              string
	SubjectID       string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	Email           string
	Audience        string
	RedirectURI     string
	RequiredActions RequiredActionSet

	tokenType         TokenType
	compoundSessionID *CompoundSessionID
}

// TokenParams are the fields shared by every token constructor
type TokenParams struct {
	ID          string
	SubjectID   string
	Email       string
	Audience    string
	RedirectURI string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// NewVerifyEmailToken builds a dedicated verify email token
func NewVerifyEmailToken(params TokenParams) (*ActionToken, error) {
	return newActionToken(TokenTypeVerifyEmail, params, NewRequiredActionSet(RequiredActionVerifyEmail))
}

// NewExecuteActionsToken builds a token carrying the given required actions.
// The set must not be empty.
func NewExecuteActionsToken(params TokenParams, actions ...RequiredAction) (*ActionToken, error) {
	set := NewRequiredActionSet(actions...)
	if len(set) == 0 {
		return nil, newError(ErrInvalidToken, map[string]any{
			"reason": "execute actions token requires at least one action",
		})
	}
	return newActionToken(TokenTypeExecuteActions, params, set)
}

// NewActionToken dispatches to the constructor for the given type
func NewActionToken(tokenType TokenType, params TokenParams, actions ...RequiredAction) (*ActionToken, error) {
	switch tokenType {
	case TokenTypeVerifyEmail:
		return NewVerifyEmailToken(params)
	case TokenTypeExecuteActions:
		return NewExecuteActionsToken(params, actions...)
	}
	return nil, newError(ErrInvalidToken, map[string]any{
		"token_type": tokenType,
	})
}

func newActionToken(tokenType TokenType, params TokenParams, actions RequiredActionSet) (*ActionToken, error) {
	if params.SubjectID == "" {
		return nil, ErrMissingSubject.Clone()
	}

	if params.IssuedAt.IsZero() {
		params.IssuedAt = time.Now()
	}

	if !params.ExpiresAt.After(params.IssuedAt) {
		return nil, newError(ErrInvalidToken, map[string]any{
			"reason":     "expiration must be after issue time",
			"issued_at":  params.IssuedAt,
			"expires_at": params.ExpiresAt,
		})
	}

	if params.ID == "" {
		params.ID = uuid.NewString()
	}

	return &ActionToken{
		ID:              params.ID,
		SubjectID:       params.SubjectID,
		IssuedAt:        params.IssuedAt,
		ExpiresAt:       params.ExpiresAt,
		Email:           params.Email,
		Audience:        params.Audience,
		RedirectURI:     params.RedirectURI,
		RequiredActions: actions,
		tokenType:       tokenType,
	}, nil
}

// Type returns the immutable token type
func (t *ActionToken) Type() TokenType {
	return t.tokenType
}

// CompoundSessionID returns the session the token was re-anchored to, if any
func (t *ActionToken) CompoundSessionID() (CompoundSessionID, bool) {
	if t.compoundSessionID == nil {
		return CompoundSessionID{}, false
	}
	return *t.compoundSessionID, true
}

// Reanchored reports whether the token is bound to a session
func (t *ActionToken) Reanchored() bool {
	return t.compoundSessionID != nil
}

// Reanchor binds the token to an authentication session. It fails if the
// token was already bound.
func (t *ActionToken) Reanchor(id CompoundSessionID) error {
	if t.compoundSessionID != nil {
		return newError(ErrSessionAlreadyAnchored, map[string]any{
			"token_id": t.ID,
		})
	}
	if id.IsZero() {
		return newError(ErrInvalidToken, map[string]any{
			"reason": "empty compound session id",
		})
	}
	t.compoundSessionID = &id
	return nil
}

// Expired reports whether the token is expired at the given instant
func (t *ActionToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Clone returns an independent copy of the token
func (t *ActionToken) Clone() *ActionToken {
	if t == nil {
		return nil
	}
	out := *t
	out.RequiredActions = t.RequiredActions.Clone()
	if t.compoundSessionID != nil {
		id := *t.compoundSessionID
		out.compoundSessionID = &id
	}
	return &out
}

// restoreActionToken rebuilds a token from decoded claims. The codec is the
// only caller, it has already checked expiry and signature.
func restoreActionToken(tokenType TokenType, params TokenParams, actions RequiredActionSet, compound *CompoundSessionID) (*ActionToken, error) {
	if !tokenType.Valid() {
		return nil, newError(ErrInvalidToken, map[string]any{
			"token_type": tokenType,
		})
	}
	if tokenType == TokenTypeExecuteActions && len(actions) == 0 {
		return nil, newError(ErrInvalidToken, map[string]any{
			"reason": "execute actions token without actions",
		})
	}
	if tokenType == TokenTypeVerifyEmail {
		actions = NewRequiredActionSet(RequiredActionVerifyEmail)
	}

	token, err := newActionToken(tokenType, params, actions)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeMissingSubject {
			return nil, newError(ErrInvalidToken, map[string]any{"reason": "missing subject"})
		}
		return nil, err
	}
	token.compoundSessionID = compound
	return token, nil
}
