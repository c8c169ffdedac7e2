package usecase

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/loginjs/loginjs/internal/domain"
	"github.com/loginjs/loginjs/internal/metrics"
)

// RequestPasswordReset issues a short-lived reset token and emails it.
// The caller receives the same answer whether or not the email belongs to
// an account, so the endpoint cannot be used to enumerate accounts.
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	acc, err := u.accounts.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil
		}
		return fmt.Errorf("find account: %w", err)
	}

	resetToken, err := u.tokens.Issue(domain.TokenPasswordReset, acc.ID, u.cfg.ResetLifetime)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	link := u.cfg.LinkBaseURL + "/reset-password?token=" + resetToken
	u.dispatch(ctx, "reset", acc.Email, u.cfg.ResetEmail, link)

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	return nil
}

// ConfirmPasswordReset consumes a reset token exactly once and rewrites
// the account's password hash. A second confirm with the same token fails
// even inside the token's validity window.
func (u *AuthUsecase) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	accountID, err := u.tokens.Verify(domain.TokenPasswordReset, rawToken)
	if err != nil {
		u.logger.WarnContext(ctx, "password reset token rejected", "reason", err)
		return domain.ErrTokenInvalid
	}

	if len(newPassword) < u.cfg.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}

	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	// Single use: the first confirm claims a marker keyed by the token's
	// own digest; any replay, concurrent or later, loses the claim. The
	// marker expiry is an upper bound on the token's remaining validity,
	// so the janitor never purges a marker for a still-verifiable token.
	tokenHash := fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))
	markerExpiry := time.Now().Add(u.cfg.ResetLifetime)

	// Past this point the writes must complete even if the caller
	// disconnects, or the account is left half-reset.
	ctx = context.WithoutCancel(ctx)

	claimed, err := u.consumed.Claim(ctx, tokenHash, domain.TokenPasswordReset, accountID, markerExpiry)
	if err != nil {
		return fmt.Errorf("claim reset token: %w", err)
	}
	if !claimed {
		u.logger.WarnContext(ctx, "password reset token replayed", "account_id", accountID)
		return domain.ErrTokenInvalid
	}

	if err := u.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("confirmed").Inc()
	return nil
}
