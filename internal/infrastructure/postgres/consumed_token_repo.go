package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loginjs/loginjs/internal/domain"
)

type ConsumedTokenRepository struct {
	pool *pgxpool.Pool
}

func NewConsumedTokenRepository(pool *pgxpool.Pool) *ConsumedTokenRepository {
	return &ConsumedTokenRepository{pool: pool}
}

// Claim inserts the consumed marker. ON CONFLICT DO NOTHING makes the
// first insert win: a replayed token hits the primary key and affects
// zero rows, even under concurrent confirms.
func (r *ConsumedTokenRepository) Claim(ctx context.Context, tokenHash string, kind domain.TokenKind, accountID string, expiresAt time.Time) (bool, error) {
	query := `
		INSERT INTO consumed_tokens (token_hash, kind, account_id, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING`

	ct, err := r.pool.Exec(ctx, query, tokenHash, string(kind), accountID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("claim consumed token: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// PurgeExpired removes markers for tokens that can no longer verify
// anyway. Bounded by limit so a long backlog cannot hold locks for the
// whole table at once.
func (r *ConsumedTokenRepository) PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `
		DELETE FROM consumed_tokens
		WHERE ctid IN (
			SELECT ctid FROM consumed_tokens
			WHERE expires_at < $1
			LIMIT $2
		)`

	ct, err := r.pool.Exec(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("purge consumed tokens: %w", err)
	}
	return ct.RowsAffected(), nil
}
