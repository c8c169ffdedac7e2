package repository

import (
	"context"
	"time"

	"github.com/loginjs/loginjs/internal/domain"
)

type AccountRepository interface {
	// Create persists a new account. The store's uniqueness constraint on
	// email is the real guarantee against concurrent duplicate
	// registrations; Create returns domain.ErrEmailTaken when it fires.
	Create(ctx context.Context, acc *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	// MarkEmailVerified is idempotent: verifying an already-verified
	// account is a no-op.
	MarkEmailVerified(ctx context.Context, id string) error
}

type ConsumedTokenRepository interface {
	// Claim records that the token identified by tokenHash has been
	// consumed. It returns true only for the first caller; concurrent
	// claims of the same hash see false.
	Claim(ctx context.Context, tokenHash string, kind domain.TokenKind, accountID string, expiresAt time.Time) (bool, error)
	// PurgeExpired deletes up to limit markers whose expiry is before the
	// cutoff and returns how many were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
