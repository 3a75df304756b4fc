package actions

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMissingSubject           = "MISSING_SUBJECT"
	TextCodeUnknownSubject           = "UNKNOWN_SUBJECT"
	TextCodeMissingEmail             = "MISSING_EMAIL"
	TextCodeSubjectDisabled          = "SUBJECT_DISABLED"
	TextCodeMissingClientForRedirect = "MISSING_CLIENT_FOR_REDIRECT"
	TextCodeUnknownClient            = "UNKNOWN_CLIENT"
	TextCodeClientDisabled           = "CLIENT_DISABLED"
	TextCodeInvalidRedirect          = "INVALID_REDIRECT"
	TextCodeDeliveryFailed           = "DELIVERY_FAILED"
	TextCodeEmailMismatch            = "EMAIL_MISMATCH"
	TextCodeTokenExpired             = "TOKEN_EXPIRED"
	TextCodeBadSignature             = "BAD_SIGNATURE"
	TextCodeInvalidToken             = "INVALID_TOKEN"
	TextCodeSessionAlreadyAnchored   = "SESSION_ALREADY_ANCHORED"
)

// Validation errors, surfaced to the caller as client errors
var (
	ErrMissingSubject = goerrors.New("User id missing", goerrors.CategoryBadInput).
				WithTextCode(TextCodeMissingSubject).
				WithCode(goerrors.CodeBadRequest)

	ErrUnknownSubject = goerrors.New("User not found", goerrors.CategoryNotFound).
				WithTextCode(TextCodeUnknownSubject).
				WithCode(goerrors.CodeNotFound)

	ErrMissingEmail = goerrors.New("User email missing", goerrors.CategoryValidation).
			WithTextCode(TextCodeMissingEmail).
			WithCode(goerrors.CodeBadRequest)

	ErrSubjectDisabled = goerrors.New("User is disabled", goerrors.CategoryValidation).
				WithTextCode(TextCodeSubjectDisabled).
				WithCode(goerrors.CodeBadRequest)

	ErrMissingClientForRedirect = goerrors.New("Client id missing", goerrors.CategoryValidation).
					WithTextCode(TextCodeMissingClientForRedirect).
					WithCode(goerrors.CodeBadRequest)

	ErrUnknownClient = goerrors.New("Client doesn't exist", goerrors.CategoryValidation).
				WithTextCode(TextCodeUnknownClient).
				WithCode(goerrors.CodeBadRequest)

	ErrClientDisabled = goerrors.New("Client is not enabled", goerrors.CategoryValidation).
				WithTextCode(TextCodeClientDisabled).
				WithCode(goerrors.CodeBadRequest)

	ErrInvalidRedirect = goerrors.New("Invalid redirect uri", goerrors.CategoryValidation).
				WithTextCode(TextCodeInvalidRedirect).
				WithCode(goerrors.CodeBadRequest)
)

// ErrDeliveryFailed is returned when the action email could not be sent
var ErrDeliveryFailed = goerrors.New("Failed to send execute actions email", goerrors.CategoryExternal).
	WithTextCode(TextCodeDeliveryFailed).
	WithCode(goerrors.CodeInternal)

// Verification errors, rendered as a stale or invalid link page
var (
	ErrEmailMismatch = goerrors.New("Token email does not match the account email", goerrors.CategoryAuth).
				WithTextCode(TextCodeEmailMismatch).
				WithCode(goerrors.CodeBadRequest)

	ErrTokenExpired = goerrors.New("Action token has expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired).
			WithCode(goerrors.CodeBadRequest)

	ErrBadSignature = goerrors.New("Action token signature is invalid", goerrors.CategoryAuth).
			WithTextCode(TextCodeBadSignature).
			WithCode(goerrors.CodeBadRequest)

	ErrInvalidToken = goerrors.New("Action token is invalid", goerrors.CategoryAuth).
			WithTextCode(TextCodeInvalidToken).
			WithCode(goerrors.CodeBadRequest)
)

// ErrSessionAlreadyAnchored is returned when a token is re-anchored twice
var ErrSessionAlreadyAnchored = goerrors.New("action token is already bound to a session", goerrors.CategoryConflict).
	WithTextCode(TextCodeSessionAlreadyAnchored).
	WithCode(goerrors.CodeConflict)

// newError clones a sentinel so metadata never leaks between calls
func newError(base *goerrors.Error, metadata map[string]any) *goerrors.Error {
	clone := base.Clone()
	if len(metadata) > 0 {
		clone.WithMetadata(metadata)
	}
	return clone
}

// HasTextCode reports whether err carries the given text code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsValidationError reports issuance precondition failures
func IsValidationError(err error) bool {
	for _, code := range []string{
		TextCodeMissingSubject,
		TextCodeUnknownSubject,
		TextCodeMissingEmail,
		TextCodeSubjectDisabled,
		TextCodeMissingClientForRedirect,
		TextCodeUnknownClient,
		TextCodeClientDisabled,
		TextCodeInvalidRedirect,
	} {
		if HasTextCode(err, code) {
			return true
		}
	}
	return false
}

// IsDeliveryError reports email delivery failures
func IsDeliveryError(err error) bool {
	return HasTextCode(err, TextCodeDeliveryFailed)
}

// IsVerificationError reports token verification failures
func IsVerificationError(err error) bool {
	return HasTextCode(err, TextCodeEmailMismatch) ||
		HasTextCode(err, TextCodeTokenExpired) ||
		HasTextCode(err, TextCodeBadSignature) ||
		HasTextCode(err, TextCodeInvalidToken)
}

// StatusCode maps an error to the HTTP status used by the REST glue
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return goerrors.CodeInternal
}
