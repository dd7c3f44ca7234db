package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campfirehq/intake-service/internal/domain"
)

// QuotaRepository persists the single daily-quota document. Save is an atomic
// whole-document rewrite; concurrency control is the caller's job.
type QuotaRepository interface {
	Load(ctx context.Context) (*domain.QuotaState, error)
	Save(ctx context.Context, state *domain.QuotaState) error
}

type quotaRepository struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository instantiates repository.
func NewQuotaRepository(pool *pgxpool.Pool) QuotaRepository {
	return &quotaRepository{pool: pool}
}

func (r *quotaRepository) Load(ctx context.Context) (*domain.QuotaState, error) {
	const query = `SELECT last_reset_date, remaining FROM quota_state WHERE id = 1`
	var state domain.QuotaState
	if err := r.pool.QueryRow(ctx, query).Scan(&state.LastResetDate, &state.Remaining); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *quotaRepository) Save(ctx context.Context, state *domain.QuotaState) error {
	const query = `
        INSERT INTO quota_state (id, last_reset_date, remaining)
        VALUES (1, $1, $2)
        ON CONFLICT (id) DO UPDATE SET last_reset_date = EXCLUDED.last_reset_date,
            remaining = EXCLUDED.remaining, updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query, state.LastResetDate, state.Remaining)
	return err
}
