package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/events"
	"github.com/campfirehq/intake-service/internal/repository"
)

// ErrQuotaExhausted is returned by Reserve when no slots remain today.
var ErrQuotaExhausted = errors.New("daily quota exhausted")

// QuotaService serializes every quota mutation through one mutex so that
// reservation, rollback and the daily reset are totally ordered. Each
// mutation persists before returning. quota_changed events are published
// only after the mutex is released: subscribers (the panel) call back into
// Remaining on the same goroutine.
type QuotaService struct {
	mu         sync.Mutex
	repo       repository.QuotaRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	dailyLimit int
	loc        *time.Location
	now        func() time.Time
}

// NewQuotaService constructs the service.
func NewQuotaService(repo repository.QuotaRepository, dispatcher events.Dispatcher, logger *zap.Logger, dailyLimit int, loc *time.Location) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &QuotaService{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
		dailyLimit: dailyLimit,
		loc:        loc,
		now:        time.Now,
	}
}

// Remaining returns today's remaining slots, after applying a pending daily
// reset if the persisted date is stale.
func (s *QuotaService) Remaining(ctx context.Context) (int, error) {
	s.mu.Lock()
	state, reset, err := s.loadLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if reset {
		s.publishChange(ctx, state.Remaining)
	}
	return state.Remaining, nil
}

// Reserve takes one slot: decrement-if-positive, persisted before returning.
// Returns ErrQuotaExhausted when nothing is left.
func (s *QuotaService) Reserve(ctx context.Context) (int, error) {
	remaining, err := s.update(ctx, func(state *domain.QuotaState) error {
		if state.Remaining <= 0 {
			return ErrQuotaExhausted
		}
		state.Remaining--
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Refund returns a previously reserved slot after a failed side effect. The
// refund is capped at the daily limit in case a reset landed in between.
func (s *QuotaService) Refund(ctx context.Context) error {
	_, err := s.update(ctx, func(state *domain.QuotaState) error {
		if state.Remaining < s.dailyLimit {
			state.Remaining++
		}
		return nil
	})
	return err
}

// ResetIfNewDay applies the daily reset when the local calendar date rolled
// over. Idempotent within a day.
func (s *QuotaService) ResetIfNewDay(ctx context.Context) error {
	_, err := s.Remaining(ctx)
	return err
}

// Set replaces the remaining count (admin command).
func (s *QuotaService) Set(ctx context.Context, amount int) error {
	if amount < 0 {
		return errors.New("quota amount must not be negative")
	}
	_, err := s.update(ctx, func(state *domain.QuotaState) error {
		state.Remaining = amount
		return nil
	})
	return err
}

// Add credits extra slots for today (admin command).
func (s *QuotaService) Add(ctx context.Context, amount int) error {
	_, err := s.update(ctx, func(state *domain.QuotaState) error {
		state.Remaining += amount
		if state.Remaining < 0 {
			state.Remaining = 0
		}
		return nil
	})
	return err
}

// Reset restores the full daily budget immediately (admin command).
func (s *QuotaService) Reset(ctx context.Context) error {
	_, err := s.update(ctx, func(state *domain.QuotaState) error {
		state.Remaining = s.dailyLimit
		return nil
	})
	return err
}

// update applies one mutation under the mutex and persists it. The resulting
// quota_changed event fires after the unlock so a synchronous subscriber can
// read the service without deadlocking.
func (s *QuotaService) update(ctx context.Context, apply func(*domain.QuotaState) error) (int, error) {
	s.mu.Lock()
	state, reset, err := s.loadLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	applyErr := apply(state)
	if applyErr == nil {
		if err := s.repo.Save(ctx, state); err != nil {
			s.mu.Unlock()
			return 0, err
		}
	}
	remaining := state.Remaining
	s.mu.Unlock()

	if applyErr == nil || reset {
		s.publishChange(ctx, remaining)
	}
	return remaining, applyErr
}

// loadLocked reads the document, seeding it on first run and applying the
// daily reset when the persisted date is stale. Callers hold the mutex; the
// returned flag tells them a reset was applied and needs publishing.
func (s *QuotaService) loadLocked(ctx context.Context) (*domain.QuotaState, bool, error) {
	now := s.now()
	state, err := s.repo.Load(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		state = &domain.QuotaState{
			LastResetDate: now.In(s.loc).Format(domain.QuotaDateLayout),
			Remaining:     s.dailyLimit,
		}
		if err := s.repo.Save(ctx, state); err != nil {
			return nil, false, err
		}
		return state, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if state.NeedsReset(now, s.loc) {
		state.LastResetDate = now.In(s.loc).Format(domain.QuotaDateLayout)
		state.Remaining = s.dailyLimit
		if err := s.repo.Save(ctx, state); err != nil {
			return nil, false, err
		}
		s.logger.Info("daily quota reset", zap.Int("remaining", state.Remaining), zap.String("date", state.LastResetDate))
		return state, true, nil
	}
	return state, false, nil
}

func (s *QuotaService) publishChange(ctx context.Context, remaining int) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventQuotaChanged,
		Timestamp: s.now(),
		Payload:   events.QuotaChangedPayload{Remaining: remaining},
	})
}
