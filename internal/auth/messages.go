package auth

import "errors"

// Error codes as exposed to the UI layer. These mirror the hosted auth
// provider's codes so the message table works for both backends.
const (
	CodeEmailExists        = "email_exists"
	CodeWeakPassword       = "weak_password"
	CodeValidationFailed   = "validation_failed"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeSignupDisabled     = "signup_disabled"
)

var authMessages = map[string]string{
	CodeEmailExists:        "An account with this email already exists. Try signing in instead.",
	"user_already_exists":  "An account with this email already exists. Try signing in instead.",
	CodeWeakPassword:       "Password is too weak. Use at least 6 characters.",
	CodeValidationFailed:   "Invalid input. Check your email and password format.",
	CodeInvalidCredentials: "Invalid email or password.",
	CodeEmailNotConfirmed:  "Please confirm your email before signing in. Check your inbox for the confirmation link.",
	CodeSignupDisabled:     "Sign up is disabled for this project.",
}

// CodeFor maps this package's sentinel errors to their UI code.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return CodeEmailExists
	case errors.Is(err, ErrWeakPassword):
		return CodeWeakPassword
	case errors.Is(err, ErrEmailRequired):
		return CodeValidationFailed
	case errors.Is(err, ErrBadCredentials):
		return CodeInvalidCredentials
	default:
		return ""
	}
}

// Message renders a human-readable message for an auth failure.
// Unrecognized codes fall back to a generic message that still carries
// the raw error for diagnostics.
func Message(code string, raw error) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	if raw != nil {
		return "Authentication failed: " + raw.Error()
	}
	return "Authentication failed. Check the server logs for details."
}
