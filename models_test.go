package actions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	actions "github.com/goliatone/go-auth-actions"
)

func TestParseRequiredAction(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   actions.RequiredAction
		wantOK bool
	}{
		{"exact", "VERIFY_EMAIL", actions.RequiredActionVerifyEmail, true},
		{"lower case", "update_password", actions.RequiredActionUpdatePassword, true},
		{"padded", "  configure_totp ", actions.RequiredActionConfigureTOTP, true},
		{"unknown", "DELETE_ACCOUNT", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := actions.ParseRequiredAction(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequiredActionSet(t *testing.T) {
	set := actions.NewRequiredActionSet(
		actions.RequiredActionVerifyEmail,
		actions.RequiredActionUpdatePassword,
		actions.RequiredActionVerifyEmail,
		"",
	)

	assert.Equal(t, []string{"VERIFY_EMAIL", "UPDATE_PASSWORD"}, set.Strings())
	assert.True(t, set.Contains(actions.RequiredActionUpdatePassword))
	assert.False(t, set.Contains(actions.RequiredActionConfigureTOTP))

	removed := set.Remove(actions.RequiredActionVerifyEmail)
	assert.Equal(t, []string{"UPDATE_PASSWORD"}, removed.Strings())
	assert.Len(t, set, 2, "remove must not alter the receiver")

	clone := set.Clone()
	clone[0] = actions.RequiredActionUpdateProfile
	assert.Equal(t, actions.RequiredActionVerifyEmail, set[0])

	assert.Nil(t, actions.RequiredActionSet(nil).Clone())
}

func TestSubjectFirstAttribute(t *testing.T) {
	s := activeSubject()
	assert.Equal(t, "m-42", s.FirstAttribute("merchant_id"))
	assert.Empty(t, s.FirstAttribute("missing"))

	var nilSubject *actions.Subject
	assert.Empty(t, nilSubject.FirstAttribute("merchant_id"))
}
