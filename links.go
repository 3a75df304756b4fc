package actions

import (
	"net/url"
	"strings"
)

const (
	actionTokenPath    = "login-actions/action-token"
	requiredActionPath = "login-actions/required-action"

	// EmailVerifiedParam is appended to caller redirects after verification
	EmailVerifiedParam = "emailVerified"
)

// LinkBuilder renders the realm scoped URLs used by the action flow
type LinkBuilder struct {
	BaseURL string
	Realm   string
}

func (l LinkBuilder) realmURL(path string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/realms/" + url.PathEscape(l.Realm) + "/" + path
}

// ActionTokenURL is the confirmation link sent by email
func (l LinkBuilder) ActionTokenURL(key string) string {
	q := url.Values{}
	q.Set("key", key)
	return l.realmURL(actionTokenPath) + "?" + q.Encode()
}

// ReanchorURL points the browser back at the action token endpoint with a
// token bound to the given session.
func (l LinkBuilder) ReanchorURL(key string, id CompoundSessionID) string {
	q := url.Values{}
	q.Set("key", key)
	q.Set("client_id", id.ClientID)
	q.Set("tab_id", id.TabID)
	return l.realmURL(actionTokenPath) + "?" + q.Encode()
}

// RequiredActionURL continues the session into its next required action
func (l LinkBuilder) RequiredActionURL(action RequiredAction, id CompoundSessionID) string {
	q := url.Values{}
	q.Set("execution", string(action))
	q.Set("client_id", id.ClientID)
	q.Set("tab_id", id.TabID)
	return l.realmURL(requiredActionPath) + "?" + q.Encode()
}

// WithEmailVerified appends emailVerified=true to a validated redirect
func WithEmailVerified(redirect string) string {
	u, err := url.Parse(redirect)
	if err != nil {
		return redirect
	}
	q := u.Query()
	q.Set(EmailVerifiedParam, "true")
	u.RawQuery = q.Encode()
	return u.String()
}
