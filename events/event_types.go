package events

import "strings"

// Category separates end user events from administrative ones
type Category string

const (
	CategoryDomain Category = "domain"
	CategoryAdmin  Category = "admin"
)

// KnownEventTypes is the catalog of domain event names that can be placed in
// an allow list.
var KnownEventTypes = []string{
	"LOGIN",
	"LOGIN_ERROR",
	"LOGOUT",
	"LOGOUT_ERROR",
	"REGISTER",
	"REGISTER_ERROR",
	"CODE_TO_TOKEN",
	"REFRESH_TOKEN",
	"CLIENT_LOGIN",
	"UPDATE_PROFILE",
	"UPDATE_PASSWORD",
	"UPDATE_EMAIL",
	"UPDATE_TOTP",
	"REMOVE_TOTP",
	"VERIFY_EMAIL",
	"VERIFY_EMAIL_ERROR",
	"SEND_VERIFY_EMAIL",
	"SEND_VERIFY_EMAIL_ERROR",
	"SEND_RESET_PASSWORD",
	"SEND_RESET_PASSWORD_ERROR",
	"RESET_PASSWORD",
	"RESET_PASSWORD_ERROR",
	"EXECUTE_ACTIONS",
	"EXECUTE_ACTIONS_ERROR",
	"EXECUTE_ACTION_TOKEN",
	"EXECUTE_ACTION_TOKEN_ERROR",
	"CUSTOM_REQUIRED_ACTION",
	"DELETE_ACCOUNT",
	"CLIENT_DELETE",
}

var knownEventTypes = func() map[string]struct{} {
	out := make(map[string]struct{}, len(KnownEventTypes))
	for _, name := range KnownEventTypes {
		out[name] = struct{}{}
	}
	return out
}()

func normalizeTypeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsKnownEventType reports whether name is in the catalog, ignoring case
func IsKnownEventType(name string) bool {
	_, ok := knownEventTypes[normalizeTypeName(name)]
	return ok
}
