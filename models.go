package actions

import "strings"

// RequiredAction is a pending obligation on an account
type RequiredAction string

const (
	RequiredActionVerifyEmail        RequiredAction = "VERIFY_EMAIL"
	RequiredActionUpdatePassword     RequiredAction = "UPDATE_PASSWORD"
	RequiredActionUpdateProfile      RequiredAction = "UPDATE_PROFILE"
	RequiredActionConfigureTOTP      RequiredAction = "CONFIGURE_TOTP"
	RequiredActionTermsAndConditions RequiredAction = "TERMS_AND_CONDITIONS"
)

// ParseRequiredAction maps a name to a known RequiredAction, ignoring case.
func ParseRequiredAction(name string) (RequiredAction, bool) {
	action := RequiredAction(strings.ToUpper(strings.TrimSpace(name)))
	switch action {
	case RequiredActionVerifyEmail,
		RequiredActionUpdatePassword,
		RequiredActionUpdateProfile,
		RequiredActionConfigureTOTP,
		RequiredActionTermsAndConditions:
		return action, true
	}
	return "", false
}

// RequiredActionSet is an insertion ordered set of required actions
type RequiredActionSet []RequiredAction

// NewRequiredActionSet builds a set dropping duplicates and empty values.
func NewRequiredActionSet(actions ...RequiredAction) RequiredActionSet {
	var set RequiredActionSet
	for _, a := range actions {
		set = set.Add(a)
	}
	return set
}

// Contains reports whether the action is part of the set
func (s RequiredActionSet) Contains(action RequiredAction) bool {
	for _, a := range s {
		if a == action {
			return true
		}
	}
	return false
}

// Add returns the set with the action appended if it was missing.
func (s RequiredActionSet) Add(action RequiredAction) RequiredActionSet {
	if action == "" || s.Contains(action) {
		return s
	}
	return append(s, action)
}

// Remove returns a copy of the set without the action.
func (s RequiredActionSet) Remove(action RequiredAction) RequiredActionSet {
	out := make(RequiredActionSet, 0, len(s))
	for _, a := range s {
		if a != action {
			out = append(out, a)
		}
	}
	return out
}

// Strings returns the action names in order
func (s RequiredActionSet) Strings() []string {
	out := make([]string, len(s))
	for i, a := range s {
		out[i] = string(a)
	}
	return out
}

// Clone returns an independent copy
func (s RequiredActionSet) Clone() RequiredActionSet {
	if s == nil {
		return nil
	}
	out := make(RequiredActionSet, len(s))
	copy(out, s)
	return out
}

// Subject is the account an action token is issued for
type Subject struct {
	ID              string              `json:"id"`
	Username        string              `json:"username,omitempty"`
	FirstName       string              `json:"first_name,omitempty"`
	LastName        string              `json:"last_name,omitempty"`
	Email           string              `json:"email,omitempty"`
	Enabled         bool                `json:"enabled"`
	EmailVerified   bool                `json:"email_verified"`
	RequiredActions RequiredActionSet   `json:"required_actions,omitempty"`
	Attributes      map[string][]string `json:"attributes,omitempty"`
}

// FirstAttribute returns the first value stored for the attribute, if any
func (s *Subject) FirstAttribute(name string) string {
	if s == nil || s.Attributes == nil {
		return ""
	}
	if values := s.Attributes[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Client is an application users are redirected back to
type Client struct {
	ClientID     string   `json:"client_id"`
	Enabled      bool     `json:"enabled"`
	RootURL      string   `json:"root_url,omitempty"`
	BaseURL      string   `json:"base_url,omitempty"`
	RedirectURIs []string `json:"redirect_uris,omitempty"`
}
