// Package password hashes plaintext passwords into salted bcrypt digests
// and verifies candidates against stored digests.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashFormat is returned when a stored digest cannot be parsed.
// Callers treat it as a failed verification, never as a crash.
var ErrHashFormat = errors.New("malformed password digest")

// DummyDigest is a valid bcrypt digest of a throwaway value. Login runs a
// comparison against it when the email is unknown so both failure paths
// cost one full hash computation.
const DummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost factor.
// The cost is configuration, not a constant: it is the tuning knob against
// both hardware speedups and self-inflicted denial of service.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash produces a salted digest of plaintext. The salt is generated per
// call and embedded in the output, so hashing the same plaintext twice
// yields different digests.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest using the salt and cost
// embedded in the digest. The comparison inside bcrypt is constant time
// relative to digest length.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrHashFormat, err)
	}
}
