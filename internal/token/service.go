// Package token issues and verifies signed, expiring tokens. Each token
// kind (session, email verification, password reset) is signed with its
// own secret, so leaking one secret never lets an attacker forge tokens
// of another kind.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loginjs/loginjs/internal/domain"
)

// Verification failures are distinguished internally for logging, but the
// transport layer collapses all three into one generic message so callers
// cannot probe which check failed.
var (
	ErrMalformed = errors.New("token malformed")
	ErrExpired   = errors.New("token expired")
	ErrSignature = errors.New("token signature invalid")
)

// Secrets holds one HMAC key per token kind.
type Secrets struct {
	Session       []byte
	EmailVerify   []byte
	PasswordReset []byte
}

type claims struct {
	jwt.RegisteredClaims
	Kind domain.TokenKind `json:"kind"`
}

type Service struct {
	secrets Secrets
}

func NewService(secrets Secrets) (*Service, error) {
	for kind, key := range map[domain.TokenKind][]byte{
		domain.TokenSession:       secrets.Session,
		domain.TokenEmailVerify:   secrets.EmailVerify,
		domain.TokenPasswordReset: secrets.PasswordReset,
	} {
		if len(key) == 0 {
			return nil, fmt.Errorf("missing secret for token kind %q", kind)
		}
	}
	return &Service{secrets: secrets}, nil
}

func (s *Service) key(kind domain.TokenKind) ([]byte, error) {
	switch kind {
	case domain.TokenSession:
		return s.secrets.Session, nil
	case domain.TokenEmailVerify:
		return s.secrets.EmailVerify, nil
	case domain.TokenPasswordReset:
		return s.secrets.PasswordReset, nil
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
}

// Issue signs a token binding subject and an absolute expiry of
// now+lifetime under the secret configured for kind.
func (s *Service) Issue(kind domain.TokenKind, subject string, lifetime time.Duration) (string, error) {
	key, err := s.key(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
		Kind: kind,
	})

	signed, err := t.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify validates signature and expiry under the secret for kind and
// returns the subject. A token of a different kind fails even before its
// expiry: it was signed with a different secret, and the embedded kind
// claim is checked as well.
func (s *Service) Verify(kind domain.TokenKind, raw string) (string, error) {
	key, err := s.key(kind)
	if err != nil {
		return "", err
	}

	var c claims
	t, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		default:
			return "", ErrSignature
		}
	}
	if !t.Valid || c.Kind != kind || c.Subject == "" {
		return "", ErrSignature
	}

	return c.Subject, nil
}
