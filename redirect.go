package actions

import (
	"context"
	"net/url"
	"path"
	"strings"
)

// ClientRedirectValidator accepts redirects matching one of the client's
// registered URIs. Relative URIs on either side are resolved against the
// client root URL. Scheme and host must always be equal; a registered URI
// ending in "*" then matches by path prefix after dot segments are removed.
type ClientRedirectValidator struct {
	logger Logger
}

// NewClientRedirectValidator returns the default validator
func NewClientRedirectValidator(logger Logger) *ClientRedirectValidator {
	return &ClientRedirectValidator{logger: normalizeLogger(logger)}
}

func (v *ClientRedirectValidator) VerifyRedirectURI(_ context.Context, redirectURI string, client *Client) (string, bool) {
	if client == nil || strings.TrimSpace(redirectURI) == "" {
		return "", false
	}

	candidate, ok := resolveAgainstRoot(redirectURI, client.RootURL)
	if !ok {
		v.logger.Debug("redirect %q could not be resolved for client %s", redirectURI, client.ClientID)
		return "", false
	}

	if candidate.User != nil {
		v.logger.Debug("redirect %q carries user info, rejected", redirectURI)
		return "", false
	}

	// fragments are never part of a redirect target
	candidate.Fragment = ""
	cleanURLPath(candidate)
	normalized := candidate.String()

	for _, registered := range client.RedirectURIs {
		registered = strings.TrimSpace(registered)
		if registered == "" {
			continue
		}

		wildcard := strings.HasSuffix(registered, "*")
		pattern := strings.TrimSuffix(registered, "*")

		resolved, ok := resolveAgainstRoot(pattern, client.RootURL)
		if !ok {
			continue
		}
		cleanURLPath(resolved)

		if redirectMatches(candidate, resolved, wildcard) {
			return normalized, true
		}
	}

	v.logger.Debug("redirect %q not registered for client %s", redirectURI, client.ClientID)
	return "", false
}

func resolveAgainstRoot(raw, root string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}

	if !u.IsAbs() {
		if root == "" {
			return nil, false
		}
		base, err := url.Parse(root)
		if err != nil || !base.IsAbs() {
			return nil, false
		}
		u = base.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" && u.Host == "" {
		// custom schemes, e.g. app://callback, are matched verbatim
		return u, u.Scheme != ""
	}
	if u.Host == "" {
		return nil, false
	}
	return u, true
}

func redirectMatches(candidate, pattern *url.URL, wildcard bool) bool {
	if !strings.EqualFold(candidate.Scheme, pattern.Scheme) || !strings.EqualFold(candidate.Host, pattern.Host) {
		return false
	}
	if wildcard {
		return strings.HasPrefix(candidate.Opaque, pattern.Opaque) &&
			strings.HasPrefix(candidate.Path, pattern.Path)
	}
	return candidate.Opaque == pattern.Opaque &&
		candidate.Path == pattern.Path &&
		candidate.RawQuery == pattern.RawQuery
}

// cleanURLPath removes dot segments, keeping a trailing slash.
func cleanURLPath(u *url.URL) {
	if u.Path == "" {
		return
	}
	cleaned := path.Clean(u.Path)
	if strings.HasSuffix(u.Path, "/") && cleaned != "/" {
		cleaned += "/"
	}
	u.Path = cleaned
	u.RawPath = ""
}
