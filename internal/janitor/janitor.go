// Package janitor removes consumed-token markers whose tokens have
// expired. A marker only needs to live as long as the token it blocks;
// after that the signature check rejects the token on its own.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/loginjs/loginjs/internal/metrics"
	"github.com/loginjs/loginjs/internal/repository"
)

const purgeBatchSize = 500

type Janitor struct {
	consumed repository.ConsumedTokenRepository
	logger   *slog.Logger
	interval time.Duration
}

func New(consumed repository.ConsumedTokenRepository, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		consumed: consumed,
		logger:   logger.With("component", "janitor"),
		interval: interval,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor shut down")
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *Janitor) purge(ctx context.Context) {
	start := time.Now()

	var total int64
	for {
		n, err := j.consumed.PurgeExpired(ctx, time.Now(), purgeBatchSize)
		if err != nil {
			j.logger.Error("purge consumed tokens", "error", err)
			break
		}
		total += n
		if n < purgeBatchSize {
			break
		}
	}

	metrics.JanitorCycleDuration.Observe(time.Since(start).Seconds())
	if total > 0 {
		metrics.ConsumedTokensPurgedTotal.Add(float64(total))
		j.logger.Info("purged expired token markers", "count", total)
	}
}
