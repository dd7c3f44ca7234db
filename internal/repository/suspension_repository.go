package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campfirehq/intake-service/internal/domain"
)

// SuspensionRepository persists the single suspension-window document.
// Timestamps are stored as UTC unix seconds, NULL when unset.
type SuspensionRepository interface {
	Load(ctx context.Context) (*domain.SuspensionSchedule, error)
	Save(ctx context.Context, schedule *domain.SuspensionSchedule) error
	Clear(ctx context.Context) error
}

type suspensionRepository struct {
	pool *pgxpool.Pool
}

// NewSuspensionRepository instantiates repository.
func NewSuspensionRepository(pool *pgxpool.Pool) SuspensionRepository {
	return &suspensionRepository{pool: pool}
}

func (r *suspensionRepository) Load(ctx context.Context) (*domain.SuspensionSchedule, error) {
	const query = `SELECT suspended, reason, start_at, end_at FROM suspension_schedule WHERE id = 1`
	var (
		schedule domain.SuspensionSchedule
		startAt  *int64
		endAt    *int64
	)
	if err := r.pool.QueryRow(ctx, query).Scan(&schedule.Suspended, &schedule.Reason, &startAt, &endAt); err != nil {
		return nil, err
	}
	schedule.StartAt = fromUnix(startAt)
	schedule.EndAt = fromUnix(endAt)
	return &schedule, nil
}

func (r *suspensionRepository) Save(ctx context.Context, schedule *domain.SuspensionSchedule) error {
	const query = `
        INSERT INTO suspension_schedule (id, suspended, reason, start_at, end_at)
        VALUES (1, $1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET suspended = EXCLUDED.suspended, reason = EXCLUDED.reason,
            start_at = EXCLUDED.start_at, end_at = EXCLUDED.end_at, updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query, schedule.Suspended, schedule.Reason, toUnix(schedule.StartAt), toUnix(schedule.EndAt))
	return err
}

func (r *suspensionRepository) Clear(ctx context.Context) error {
	return r.Save(ctx, &domain.SuspensionSchedule{})
}

func toUnix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	unix := t.Unix()
	return &unix
}

func fromUnix(unix *int64) *time.Time {
	if unix == nil {
		return nil
	}
	t := time.Unix(*unix, 0).UTC()
	return &t
}
