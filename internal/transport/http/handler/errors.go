package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	errInternalServer     = "Internal server error"
	errInvalidCredentials = "Invalid email or password"
	errEmailNotVerified   = "Email address not verified"
	errEmailTaken         = "An account with this email already exists"
	errTokenInvalid       = "Token is invalid or expired"
	errAccountNotFound    = "Account not found"

	msgEmailVerified  = "Email address verified"
	msgResetRequested = "If that email belongs to an account, a reset link has been sent"
	msgPasswordReset  = "Password updated"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// fieldErrors translates a gin binding failure into per-field messages.
// Anything that is not a validator error (e.g. malformed JSON) becomes a
// single generic entry.
func fieldErrors(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldError{{Field: "", Message: "invalid request body"}}
	}

	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
