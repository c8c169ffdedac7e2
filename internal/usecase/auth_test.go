package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/loginjs/loginjs/internal/domain"
	"github.com/loginjs/loginjs/internal/email"
	"github.com/loginjs/loginjs/internal/password"
	"github.com/loginjs/loginjs/internal/token"
	"github.com/loginjs/loginjs/internal/usecase"
)

// ---- fakes ----

type fakeAccountRepo struct {
	create             func(ctx context.Context, acc *domain.Account) (*domain.Account, error)
	findByID           func(ctx context.Context, id string) (*domain.Account, error)
	findByEmail        func(ctx context.Context, email string) (*domain.Account, error)
	updatePasswordHash func(ctx context.Context, id, hash string) error
	markEmailVerified  func(ctx context.Context, id string) error
}

func (r *fakeAccountRepo) Create(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	return r.create(ctx, acc)
}

func (r *fakeAccountRepo) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findByID(ctx, id)
}

func (r *fakeAccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeAccountRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.updatePasswordHash(ctx, id, hash)
}

func (r *fakeAccountRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return r.markEmailVerified(ctx, id)
}

type fakeConsumedRepo struct {
	claim        func(ctx context.Context, tokenHash string, kind domain.TokenKind, accountID string, expiresAt time.Time) (bool, error)
	purgeExpired func(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

func (r *fakeConsumedRepo) Claim(ctx context.Context, tokenHash string, kind domain.TokenKind, accountID string, expiresAt time.Time) (bool, error) {
	return r.claim(ctx, tokenHash, kind, accountID, expiresAt)
}

func (r *fakeConsumedRepo) PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	return r.purgeExpired(ctx, cutoff, limit)
}

type fakeEmailSender struct {
	send func(ctx context.Context, to, subject, body string) error
}

func (s *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

// ---- helpers ----

var testSecrets = token.Secrets{
	Session:       []byte("session-test-secret-32-chars-min!!"),
	EmailVerify:   []byte("verify-test-secret-32-chars-min!!!"),
	PasswordReset: []byte("reset-test-secret-32-chars-min!!!!"),
}

func newTestTokens(t *testing.T) *token.Service {
	t.Helper()
	s, err := token.NewService(testSecrets)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return s
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(4)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func testConfig() usecase.Config {
	return usecase.Config{
		MinPasswordLength: 8,
		SessionLifetime:   time.Hour,
		VerifyLifetime:    time.Hour,
		ResetLifetime:     15 * time.Minute,
		LinkBaseURL:       "http://localhost:8080",
		VerifyEmail:       email.Template{Subject: "Verify", Heading: "Verify", Message: "Click below."},
		ResetEmail:        email.Template{Subject: "Reset", Heading: "Reset", Message: "Click below."},
	}
}

func newUsecase(t *testing.T, accounts *fakeAccountRepo, consumed *fakeConsumedRepo, sender *fakeEmailSender, cfg usecase.Config) *usecase.AuthUsecase {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return usecase.NewAuthUsecase(accounts, consumed, newTestHasher(t), newTestTokens(t), sender, cfg, logger)
}

func noAccount(_ context.Context, _ string) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

func discardEmail(_ context.Context, _, _, _ string) error { return nil }

// linkToken pulls the raw token out of the link embedded in an email body.
func linkToken(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "?token=")
	if idx == -1 {
		t.Fatal("email body does not contain ?token=")
	}
	return strings.SplitN(body[idx+len("?token="):], `"`, 2)[0]
}

// waitForEmail receives a captured email body or fails the test. Dispatch
// happens on a background goroutine, so tests rendezvous on a channel.
func waitForEmail(t *testing.T, bodies <-chan string) string {
	t.Helper()
	select {
	case body := <-bodies:
		return body
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email dispatch")
		return ""
	}
}

var registerInput = usecase.RegisterInput{Name: "A", Email: "a@x.com", Password: "secret123"}

// ---- Register ----

func TestRegister_StoresDigestNotPlaintext(t *testing.T) {
	var stored *domain.Account
	accounts := &fakeAccountRepo{
		findByEmail: noAccount,
		create: func(_ context.Context, acc *domain.Account) (*domain.Account, error) {
			stored = acc
			created := *acc
			created.ID = "acc-1"
			return &created, nil
		},
	}
	sender := &fakeEmailSender{send: discardEmail}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, sender, testConfig())
	if _, err := u.Register(context.Background(), registerInput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored.PasswordHash == registerInput.Password {
		t.Error("plaintext password was stored")
	}
	ok, err := newTestHasher(t).Verify(registerInput.Password, stored.PasswordHash)
	if err != nil || !ok {
		t.Errorf("stored digest does not verify original password (ok=%v, err=%v)", ok, err)
	}
	if stored.AvatarURL == "" {
		t.Error("avatar ref not derived")
	}
	if stored.EmailVerified {
		t.Error("new account must start unverified")
	}
}

func TestRegister_ReturnsDecodableSessionToken(t *testing.T) {
	accounts := &fakeAccountRepo{
		findByEmail: noAccount,
		create: func(_ context.Context, acc *domain.Account) (*domain.Account, error) {
			created := *acc
			created.ID = "acc-1"
			return &created, nil
		},
	}
	sender := &fakeEmailSender{send: discardEmail}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, sender, testConfig())
	raw, err := u.Register(context.Background(), registerInput)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subject, err := newTestTokens(t).Verify(domain.TokenSession, raw)
	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}
	if subject != "acc-1" {
		t.Errorf("subject = %q, want %q", subject, "acc-1")
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	u := newUsecase(t, &fakeAccountRepo{}, &fakeConsumedRepo{}, &fakeEmailSender{}, testConfig())

	_, err := u.Register(context.Background(), usecase.RegisterInput{Name: "A", Email: "a@x.com", Password: "short"})
	if !errors.Is(err, domain.ErrPasswordTooShort) {
		t.Errorf("want ErrPasswordTooShort, got %v", err)
	}
}

func TestRegister_DuplicateEmail_FastPath(t *testing.T) {
	accounts := &fakeAccountRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.Account, error) {
			return &domain.Account{ID: "acc-1", Email: "a@x.com"}, nil
		},
	}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, &fakeEmailSender{}, testConfig())
	if _, err := u.Register(context.Background(), registerInput); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("want ErrEmailTaken, got %v", err)
	}
}

// Two concurrent registrations can both pass the fast-path check; the
// store's uniqueness constraint rejects the loser at insert time.
func TestRegister_DuplicateEmail_LostRace(t *testing.T) {
	accounts := &fakeAccountRepo{
		findByEmail: noAccount,
		create: func(_ context.Context, _ *domain.Account) (*domain.Account, error) {
			return nil, domain.ErrEmailTaken
		},
	}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, &fakeEmailSender{}, testConfig())
	if _, err := u.Register(context.Background(), registerInput); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("want ErrEmailTaken, got %v", err)
	}
}

func TestRegister_EmailsVerificationToken(t *testing.T) {
	accounts := &fakeAccountRepo{
		findByEmail: noAccount,
		create: func(_ context.Context, acc *domain.Account) (*domain.Account, error) {
			created := *acc
			created.ID = "acc-1"
			return &created, nil
		},
	}
	bodies := make(chan string, 1)
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, body string) error {
			bodies <- body
			return nil
		},
	}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, sender, testConfig())
	if _, err := u.Register(context.Background(), registerInput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := linkToken(t, waitForEmail(t, bodies))
	subject, err := newTestTokens(t).Verify(domain.TokenEmailVerify, raw)
	if err != nil {
		t.Fatalf("emailed token does not verify as email-verify kind: %v", err)
	}
	if subject != "acc-1" {
		t.Errorf("subject = %q, want %q", subject, "acc-1")
	}
}

func TestRegister_DispatchFailureDoesNotFailRegistration(t *testing.T) {
	accounts := &fakeAccountRepo{
		findByEmail: noAccount,
		create: func(_ context.Context, acc *domain.Account) (*domain.Account, error) {
			created := *acc
			created.ID = "acc-1"
			return &created, nil
		},
	}
	sent := make(chan struct{}, 1)
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, _ string) error {
			sent <- struct{}{}
			return errors.New("smtp unavailable")
		},
	}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, sender, testConfig())
	if _, err := u.Register(context.Background(), registerInput); err != nil {
		t.Fatalf("registration must not depend on deliverability, got %v", err)
	}

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email dispatch")
	}
}

// ---- Login ----

func accountWithPassword(t *testing.T, plaintext string) *domain.Account {
	t.Helper()
	digest, err := newTestHasher(t).Hash(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &domain.Account{ID: "acc-1", Name: "A", Email: "a@x.com", PasswordHash: digest}
}

func TestLogin_Success(t *testing.T) {
	acc := accountWithPassword(t, "secret123")
	accounts := &fakeAccountRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.Account, error) { return acc, nil },
	}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, &fakeEmailSender{}, testConfig())
	raw, err := u.Login(context.Background(), "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subject, err := newTestTokens(t).Verify(domain.TokenSession, raw)
	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}
	if subject != acc.ID {
		t.Errorf("subject = %q, want %q", subject, acc.ID)
	}
}

// Wrong password and unknown email must be indistinguishable.
func TestLogin_WrongPasswordAndUnknownEmail_SameError(t *testing.T) {
	acc := accountWithPassword(t, "secret123")

	known := &fakeAccountRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.Account, error) { return acc, nil },
	}
	unknown := &fakeAccountRepo{findByEmail: noAccount}

	u1 := newUsecase(t, known, &fakeConsumedRepo{}, &fakeEmailSender{}, testConfig())
	_, err1 := u1.Login(context.Background(), "a@x.com", "wrong")

	u2 := newUsecase(t, unknown, &fakeConsumedRepo{}, &fakeEmailSender{}, testConfig())
	_, err2 := u2.Login(context.Background(), "ghost@x.com", "wrong")

	if !errors.Is(err1, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: want ErrInvalidCredentials, got %v", err1)
	}
	if !errors.Is(err2, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: want ErrInvalidCredentials, got %v", err2)
	}
}

func TestLogin_MalformedStoredDigest(t *testing.T) {
	accounts := &fakeAccountRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.Account, error) {
			return &domain.Account{ID: "acc-1", Email: "a@x.com", PasswordHash: "corrupted"}, nil
		},
	}

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, &fakeEmailSender{}, testConfig())
	if _, err := u.Login(context.Background(), "a@x.com", "secret123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_VerifiedEmailGate(t *testing.T) {
	acc := accountWithPassword(t, "secret123")
	accounts := &fakeAccountRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.Account, error) { return acc, nil },
	}

	cfg := testConfig()
	cfg.RequireVerifiedEmail = true

	u := newUsecase(t, accounts, &fakeConsumedRepo{}, &fakeEmailSender{}, cfg)
	if _, err := u.Login(context.Background(), "a@x.com", "secret123"); !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Errorf("want ErrEmailNotVerified, got %v", err)
	}

	acc.EmailVerified = true
	if _, err := u.Login(context.Background(), "a@x.com", "secret123"); err != nil {
		t.Errorf("verified account should log in, got %v", err)
	}
}
