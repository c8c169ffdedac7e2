package domain

// TokenKind scopes a signed token to exactly one consuming flow.
// A session token must never satisfy a password-reset check and vice versa.
type TokenKind string

const (
	TokenSession       TokenKind = "session"
	TokenEmailVerify   TokenKind = "email_verify"
	TokenPasswordReset TokenKind = "password_reset"
)
