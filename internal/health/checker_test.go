package health_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/loginjs/loginjs/internal/health"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func newChecker(t *testing.T, db *fakePinger) *health.Checker {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return health.NewChecker(db, logger, prometheus.NewRegistry())
}

func TestLiveness_AlwaysUp(t *testing.T) {
	c := newChecker(t, &fakePinger{err: errors.New("db unreachable")})

	if got := c.Liveness(context.Background()); got.Status != "up" {
		t.Errorf("liveness status = %q, want up", got.Status)
	}
}

func TestReadiness_DatabaseUp(t *testing.T) {
	c := newChecker(t, &fakePinger{})

	result := c.Readiness(context.Background())
	if result.Status != "up" {
		t.Errorf("status = %q, want up", result.Status)
	}
	if result.Checks["postgres"].Status != "up" {
		t.Errorf("postgres check = %+v, want up", result.Checks["postgres"])
	}
}

func TestReadiness_DatabaseDown(t *testing.T) {
	c := newChecker(t, &fakePinger{err: errors.New("connection refused")})

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Errorf("status = %q, want down", result.Status)
	}
	check := result.Checks["postgres"]
	if check.Status != "down" {
		t.Errorf("postgres check status = %q, want down", check.Status)
	}
	if check.Error == "" {
		t.Error("postgres check error is empty, want the ping failure")
	}
}
