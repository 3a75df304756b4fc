package actions

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// actionClaims is the wire form of an ActionToken
type actionClaims struct {
	jwt.RegisteredClaims
	TokenType         string   `json:"typ"`
	Email             string   `json:"eml,omitempty"`
	AuthorizedParty   string   `json:"azp,omitempty"`
	RedirectURI       string   `json:"reduri,omitempty"`
	RequiredActions   []string `json:"rqac,omitempty"`
	CompoundSessionID string   `json:"asid,omitempty"`
}

// JWTTokenCodec signs action tokens as HS256 JWTs
type JWTTokenCodec struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
	logger     Logger
}

// JWTTokenCodecOption customizes the codec
type JWTTokenCodecOption func(*JWTTokenCodec)

// WithCodecClock injects the clock used to check expiry
func WithCodecClock(now func() time.Time) JWTTokenCodecOption {
	return func(c *JWTTokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCodecLogger sets the codec logger
func WithCodecLogger(logger Logger) JWTTokenCodecOption {
	return func(c *JWTTokenCodec) {
		c.logger = normalizeLogger(logger)
	}
}

// NewJWTTokenCodec creates a codec for the given key. When issuer is not
// empty it is stamped on signed tokens and required on verification.
func NewJWTTokenCodec(signingKey []byte, issuer string, opts ...JWTTokenCodecOption) *JWTTokenCodec {
	c := &JWTTokenCodec{
		signingKey: signingKey,
		issuer:     issuer,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Sign serializes the token
func (c *JWTTokenCodec) Sign(token *ActionToken) (string, error) {
	if token == nil {
		return "", goerrors.New("action token must not be nil", goerrors.CategoryInternal)
	}

	claims := &actionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.ID,
			Issuer:    c.issuer,
			Subject:   token.SubjectID,
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
		TokenType:       string(token.Type()),
		Email:           token.Email,
		AuthorizedParty: token.Audience,
		RedirectURI:     token.RedirectURI,
		RequiredActions: token.RequiredActions.Strings(),
	}

	if token.Audience != "" {
		claims.Audience = jwt.ClaimStrings{token.Audience}
	}

	if id, ok := token.CompoundSessionID(); ok {
		claims.CompoundSessionID = id.Encode()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign action token")
	}
	return signed, nil
}

// Verify checks signature and expiry and rebuilds the token
func (c *JWTTokenCodec) Verify(signed string) (*ActionToken, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(signed, &actionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired.Clone()
		case goerrors.Is(err, jwt.ErrTokenSignatureInvalid), goerrors.Is(err, jwt.ErrTokenUnverifiable):
			c.logger.Warn("action token signature rejected: %v", err)
			return nil, ErrBadSignature.Clone()
		}
		c.logger.Debug("action token rejected: %v", err)
		return nil, goerrors.Wrap(err, ErrInvalidToken.Category, ErrInvalidToken.Message).
			WithTextCode(ErrInvalidToken.TextCode).
			WithCode(ErrInvalidToken.Code)
	}

	claims, ok := parsed.Claims.(*actionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken.Clone()
	}

	return claims.toActionToken()
}

func (ac *actionClaims) toActionToken() (*ActionToken, error) {
	params := TokenParams{
		ID:          ac.ID,
		SubjectID:   ac.Subject,
		Email:       ac.Email,
		Audience:    ac.AuthorizedParty,
		RedirectURI: ac.RedirectURI,
	}
	if ac.IssuedAt != nil {
		params.IssuedAt = ac.IssuedAt.Time
	}
	if ac.ExpiresAt != nil {
		params.ExpiresAt = ac.ExpiresAt.Time
	}
	if params.Audience == "" && len(ac.Audience) > 0 {
		params.Audience = ac.Audience[0]
	}

	var actions RequiredActionSet
	for _, name := range ac.RequiredActions {
		action, ok := ParseRequiredAction(name)
		if !ok {
			return nil, newError(ErrInvalidToken, map[string]any{
				"required_action": name,
			})
		}
		actions = actions.Add(action)
	}

	var compound *CompoundSessionID
	if ac.CompoundSessionID != "" {
		id, err := DecodeCompoundSessionID(ac.CompoundSessionID)
		if err != nil {
			return nil, err
		}
		compound = &id
	}

	return restoreActionToken(TokenType(ac.TokenType), params, actions, compound)
}
