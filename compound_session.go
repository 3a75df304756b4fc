package actions

import (
	"encoding/base64"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const compoundSeparator = "."

// CompoundSessionID identifies a single browser tab of an authentication
// session for a given client.
type CompoundSessionID struct {
	RootID   string `json:"root_id"`
	TabID    string `json:"tab_id"`
	ClientID string `json:"client_id"`
}

// IsZero reports whether no part of the id is set
func (c CompoundSessionID) IsZero() bool {
	return c.RootID == "" && c.TabID == "" && c.ClientID == ""
}

// Encode returns the url safe form embedded in tokens
func (c CompoundSessionID) Encode() string {
	raw := strings.Join([]string{c.RootID, c.TabID, c.ClientID}, compoundSeparator)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (c CompoundSessionID) String() string {
	return c.Encode()
}

// DecodeCompoundSessionID parses the output of Encode
func DecodeCompoundSessionID(encoded string) (CompoundSessionID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return CompoundSessionID{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed compound session id").
			WithTextCode(TextCodeInvalidToken).
			WithCode(goerrors.CodeBadRequest)
	}

	// client ids may contain dots, root and tab ids never do
	parts := strings.SplitN(string(raw), compoundSeparator, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return CompoundSessionID{}, newError(ErrInvalidToken, map[string]any{
			"reason": "compound session id must have three parts",
		})
	}

	return CompoundSessionID{
		RootID:   parts[0],
		TabID:    parts[1],
		ClientID: parts[2],
	}, nil
}
