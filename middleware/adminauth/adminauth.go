// Package adminauth guards the admin action routes with a bearer JWT and
// stores the authenticated actor in the router locals.
package adminauth

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"

	actions "github.com/goliatone/go-auth-actions"
)

const (
	defaultTokenLookup  = "header:" + router.HeaderAuthorization
	defaultAuthScheme   = "Bearer"
	defaultRequiredRole = "manage-users"
)

var (
	ErrMissingToken      = errors.New("missing or malformed bearer token")
	ErrInsufficientRoles = errors.New("admin role required")
)

// Config configures the middleware. One of SigningKey or JWKSetURLs is
// required; JWKSetURLs wins when both are set.
type Config struct {
	SigningKey    []byte
	SigningMethod string
	JWKSetURLs    []string
	Issuer        string

	// RequiredRole must appear in realm_access.roles (default: "manage-users")
	RequiredRole string

	// TokenLookup lists sources as "header:Authorization,cookie:admin_token"
	TokenLookup string
	AuthScheme  string

	ErrorHandler router.ErrorHandler
}

// Claims are the admin token claims
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string      `json:"preferred_username,omitempty"`
	RealmAccess       RealmAccess `json:"realm_access"`
}

type RealmAccess struct {
	Roles []string `json:"roles"`
}

func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.RealmAccess.Roles, role)
}

// Actor maps the claims to the ActorRef recorded on admin activity
func (c *Claims) Actor() actions.ActorRef {
	id := c.Subject
	if id == "" {
		id = c.PreferredUsername
	}
	return actions.ActorRef{ID: id, Type: "admin"}
}

// New builds the middleware.
func New(cfg Config) (router.MiddlewareFunc, error) {
	cfg, err := withDefaults(cfg)
	if err != nil {
		return nil, err
	}

	keyFunc, err := cfg.keyFunc()
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(cfg.parserOptions()...)
	extractors := getExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := extractToken(ctx, extractors)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims := &Claims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if !claims.HasRole(cfg.RequiredRole) {
				return cfg.ErrorHandler(ctx, fmt.Errorf("%w: %s", ErrInsufficientRoles, cfg.RequiredRole))
			}

			ctx.Locals(actions.ActorLocalsKey, claims.Actor())
			return next(ctx)
		}
	}, nil
}

func withDefaults(cfg Config) (Config, error) {
	if len(cfg.SigningKey) == 0 && len(cfg.JWKSetURLs) == 0 {
		return cfg, errors.New("admin auth requires a signing key or a JWK set URL")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = jwt.SigningMethodHS256.Alg()
	}
	if cfg.RequiredRole == "" {
		cfg.RequiredRole = defaultRequiredRole
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}
	return cfg, nil
}

func (cfg Config) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.JWKSetURLs) == 0 {
		opts = append(opts, jwt.WithValidMethods([]string{cfg.SigningMethod}))
	}
	return opts
}

func (cfg Config) keyFunc() (jwt.Keyfunc, error) {
	if len(cfg.JWKSetURLs) > 0 {
		return multiKeyfunc(cfg.JWKSetURLs)
	}
	return signingKeyFunc(cfg.SigningKey), nil
}

// DefaultErrorHandler maps failures to 400, 401 and 403 responses.
func DefaultErrorHandler(ctx router.Context, err error) error {
	switch {
	case errors.Is(err, ErrMissingToken):
		return ctx.Status(router.StatusBadRequest).SendString(ErrMissingToken.Error())
	case errors.Is(err, ErrInsufficientRoles):
		return ctx.Status(router.StatusForbidden).SendString(ErrInsufficientRoles.Error())
	default:
		return ctx.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
	}
}

func multiKeyfunc(urls []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions()
	m := make(map[string]keyfunc.Options, len(urls))
	for _, url := range urls {
		m[url] = opts
	}
	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK sets: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions() keyfunc.Options {
	return keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to refresh JWK set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	}
}

func signingKeyFunc(key []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) {
		return key, nil
	}
}

type extractor func(ctx router.Context) string

func extractToken(ctx router.Context, extractors []extractor) (string, error) {
	for _, extract := range extractors {
		if raw := extract(ctx); raw != "" {
			return raw, nil
		}
	}
	return "", ErrMissingToken
}

// getExtractors parses "header:Authorization,cookie:jwt,query:access_token"
func getExtractors(lookup, scheme string) []extractor {
	var out []extractor
	for _, part := range strings.Split(lookup, ",") {
		source, name, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)

		switch strings.TrimSpace(source) {
		case "header":
			out = append(out, fromHeader(name, scheme))
		case "query":
			out = append(out, func(ctx router.Context) string { return ctx.Query(name) })
		case "cookie":
			out = append(out, func(ctx router.Context) string { return ctx.Cookies(name) })
		}
	}
	return out
}

func fromHeader(header, scheme string) extractor {
	return func(ctx router.Context) string {
		value := ctx.GetString(header, "")
		l := len(scheme)
		if len(value) > l+1 && strings.EqualFold(value[:l], scheme) && value[l] == ' ' {
			return strings.TrimSpace(value[l:])
		}
		return ""
	}
}
