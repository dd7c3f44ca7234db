package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campfirehq/intake-service/internal/domain"
)

func newQuotaService(repo *memQuotaRepo, limit int) *QuotaService {
	return NewQuotaService(repo, nil, nil, limit, time.UTC)
}

func TestQuotaSeedsOnFirstUse(t *testing.T) {
	repo := &memQuotaRepo{}
	svc := newQuotaService(repo, 60)

	remaining, err := svc.Remaining(context.Background())
	require.NoError(t, err)
	require.Equal(t, 60, remaining)
	require.Equal(t, 1, repo.saves)
	require.Equal(t, time.Now().UTC().Format(domain.QuotaDateLayout), repo.state.LastResetDate)
}

func TestQuotaReserveAndRefund(t *testing.T) {
	repo := &memQuotaRepo{}
	svc := newQuotaService(repo, 3)
	ctx := context.Background()

	remaining, err := svc.Reserve(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, remaining)
	require.Equal(t, 2, repo.state.Remaining)

	require.NoError(t, svc.Refund(ctx))
	remaining, err = svc.Remaining(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, remaining)

	// refund at the full budget must not exceed the limit
	require.NoError(t, svc.Refund(ctx))
	remaining, err = svc.Remaining(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, remaining)
}

func TestQuotaReserveExhausted(t *testing.T) {
	repo := &memQuotaRepo{state: &domain.QuotaState{
		LastResetDate: time.Now().UTC().Format(domain.QuotaDateLayout),
		Remaining:     1,
	}}
	svc := newQuotaService(repo, 60)
	ctx := context.Background()

	remaining, err := svc.Reserve(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)

	_, err = svc.Reserve(ctx)
	require.ErrorIs(t, err, ErrQuotaExhausted)
	require.Equal(t, 0, repo.state.Remaining)
}

func TestQuotaResetsOnStaleDate(t *testing.T) {
	repo := &memQuotaRepo{state: &domain.QuotaState{
		LastResetDate: "2000-01-01",
		Remaining:     3,
	}}
	svc := newQuotaService(repo, 60)

	remaining, err := svc.Remaining(context.Background())
	require.NoError(t, err)
	require.Equal(t, 60, remaining)
	require.Equal(t, time.Now().UTC().Format(domain.QuotaDateLayout), repo.state.LastResetDate)
}

func TestQuotaResetIfNewDayIdempotent(t *testing.T) {
	repo := &memQuotaRepo{state: &domain.QuotaState{
		LastResetDate: time.Now().UTC().Format(domain.QuotaDateLayout),
		Remaining:     17,
	}}
	svc := newQuotaService(repo, 60)
	ctx := context.Background()

	require.NoError(t, svc.ResetIfNewDay(ctx))
	require.NoError(t, svc.ResetIfNewDay(ctx))
	require.Equal(t, 17, repo.state.Remaining)
}

func TestQuotaAdminCommands(t *testing.T) {
	repo := &memQuotaRepo{}
	svc := newQuotaService(repo, 60)
	ctx := context.Background()

	require.Error(t, svc.Set(ctx, -1))
	require.NoError(t, svc.Set(ctx, 5))
	require.Equal(t, 5, repo.state.Remaining)

	require.NoError(t, svc.Add(ctx, 10))
	require.Equal(t, 15, repo.state.Remaining)

	// a negative credit clamps at zero rather than going negative
	require.NoError(t, svc.Add(ctx, -100))
	require.Equal(t, 0, repo.state.Remaining)

	require.NoError(t, svc.Reset(ctx))
	require.Equal(t, 60, repo.state.Remaining)
}
