package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loginjs/loginjs/internal/avatar"
	"github.com/loginjs/loginjs/internal/domain"
	"github.com/loginjs/loginjs/internal/email"
	"github.com/loginjs/loginjs/internal/metrics"
	"github.com/loginjs/loginjs/internal/password"
	"github.com/loginjs/loginjs/internal/repository"
	"github.com/loginjs/loginjs/internal/token"
)

// Config carries the tunables the flows need. Everything here is
// validated at startup by the config package.
type Config struct {
	MinPasswordLength    int
	SessionLifetime      time.Duration
	VerifyLifetime       time.Duration
	ResetLifetime        time.Duration
	LinkBaseURL          string
	RequireVerifiedEmail bool
	VerifyEmail          email.Template
	ResetEmail           email.Template
}

type AuthUsecase struct {
	accounts repository.AccountRepository
	consumed repository.ConsumedTokenRepository
	hasher   *password.Hasher
	tokens   *token.Service
	email    email.Sender
	cfg      Config
	logger   *slog.Logger
}

func NewAuthUsecase(
	accounts repository.AccountRepository,
	consumed repository.ConsumedTokenRepository,
	hasher *password.Hasher,
	tokens *token.Service,
	emailSender email.Sender,
	cfg Config,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		accounts: accounts,
		consumed: consumed,
		hasher:   hasher,
		tokens:   tokens,
		email:    emailSender,
		cfg:      cfg,
		logger:   logger.With("component", "auth_usecase"),
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an account and returns a session token. The
// verification email is dispatched in the background: its failure is
// logged but never rolls back account creation.
func (u *AuthUsecase) Register(ctx context.Context, input RegisterInput) (string, error) {
	if len(input.Password) < u.cfg.MinPasswordLength {
		return "", domain.ErrPasswordTooShort
	}

	// Fast path for a friendlier error. The unique index on the store is
	// what actually prevents two concurrent registrations from both
	// succeeding.
	if _, err := u.accounts.FindByEmail(ctx, input.Email); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
		return "", domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return "", fmt.Errorf("check existing email: %w", err)
	}

	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	// The insert must run to completion even if the caller disconnects.
	created, err := u.accounts.Create(context.WithoutCancel(ctx), &domain.Account{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		AvatarURL:    avatar.URL(input.Email),
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return "", err
		}
		return "", fmt.Errorf("create account: %w", err)
	}

	sessionToken, err := u.tokens.Issue(domain.TokenSession, created.ID, u.cfg.SessionLifetime)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}

	verifyToken, err := u.tokens.Issue(domain.TokenEmailVerify, created.ID, u.cfg.VerifyLifetime)
	if err != nil {
		// Account exists and registration still succeeds; the user can
		// request another verification link later.
		u.logger.ErrorContext(ctx, "issue verification token", "error", err)
	} else {
		link := u.cfg.LinkBaseURL + "/verify-email?token=" + verifyToken
		u.dispatch(ctx, "verify", created.Email, u.cfg.VerifyEmail, link)
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	return sessionToken, nil
}

// Login checks credentials and returns a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, plaintext string) (string, error) {
	acc, err := u.accounts.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Equalize cost with the account-found path.
			_, _ = u.hasher.Verify(plaintext, password.DummyDigest)
			metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find account: %w", err)
	}

	ok, err := u.hasher.Verify(plaintext, acc.PasswordHash)
	if err != nil {
		// Unparseable stored digest. Logged with detail, surfaced as a
		// plain credential failure.
		u.logger.ErrorContext(ctx, "verify password", "account_id", acc.ID, "error", err)
		ok = false
	}
	if !ok {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return "", domain.ErrInvalidCredentials
	}

	if u.cfg.RequireVerifiedEmail && !acc.EmailVerified {
		metrics.LoginsTotal.WithLabelValues("unverified").Inc()
		return "", domain.ErrEmailNotVerified
	}

	sessionToken, err := u.tokens.Issue(domain.TokenSession, acc.ID, u.cfg.SessionLifetime)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("accepted").Inc()
	return sessionToken, nil
}

// Account loads the account a verified session token points at.
func (u *AuthUsecase) Account(ctx context.Context, id string) (*domain.Account, error) {
	acc, err := u.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

// dispatch sends a notification email without blocking the flow. The
// response to the caller never waits on, or reflects, deliverability.
func (u *AuthUsecase) dispatch(ctx context.Context, purpose, to string, tmpl email.Template, link string) {
	subject, body := tmpl.Compose(link)
	sendCtx := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(sendCtx, 10*time.Second)
		defer cancel()
		if err := u.email.Send(sendCtx, to, subject, body); err != nil {
			u.logger.ErrorContext(sendCtx, "send email", "purpose", purpose, "error", err)
			metrics.EmailsSentTotal.WithLabelValues(purpose, "error").Inc()
			return
		}
		metrics.EmailsSentTotal.WithLabelValues(purpose, "sent").Inc()
	}()
}
