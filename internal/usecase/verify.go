package usecase

import (
	"context"
	"fmt"

	"github.com/loginjs/loginjs/internal/domain"
	"github.com/loginjs/loginjs/internal/metrics"
)

// VerifyEmail consumes an email-verification token and flips the account
// to verified. Re-presenting a still-valid token afterwards is a no-op
// success, not an error: the verified flag is set exactly once and never
// reverts.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, rawToken string) error {
	accountID, err := u.tokens.Verify(domain.TokenEmailVerify, rawToken)
	if err != nil {
		u.logger.WarnContext(ctx, "email verification token rejected", "reason", err)
		metrics.EmailVerificationsTotal.WithLabelValues("rejected").Inc()
		return domain.ErrTokenInvalid
	}

	if err := u.accounts.MarkEmailVerified(context.WithoutCancel(ctx), accountID); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	metrics.EmailVerificationsTotal.WithLabelValues("verified").Inc()
	return nil
}
