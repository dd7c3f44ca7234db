package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/events"
	"github.com/campfirehq/intake-service/internal/repository"
	apperrors "github.com/campfirehq/intake-service/pkg/util/errorutil"
)

// SuspensionService owns the maintenance window: full replace on set, reset
// to all-empty on clear, persisted before returning.
type SuspensionService struct {
	repo       repository.SuspensionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewSuspensionService constructs the service.
func NewSuspensionService(repo repository.SuspensionRepository, dispatcher events.Dispatcher, logger *zap.Logger) *SuspensionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuspensionService{repo: repo, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// Current returns the schedule, empty when none was ever set.
func (s *SuspensionService) Current(ctx context.Context) (*domain.SuspensionSchedule, error) {
	schedule, err := s.repo.Load(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.SuspensionSchedule{}, nil
	}
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// SetWindow replaces the suspension window (admin command). A nil start means
// effective immediately; a nil end means open-ended until cleared.
func (s *SuspensionService) SetWindow(ctx context.Context, reason string, startAt, endAt *time.Time) error {
	schedule := &domain.SuspensionSchedule{
		Suspended: true,
		Reason:    reason,
		StartAt:   startAt,
		EndAt:     endAt,
	}
	if err := schedule.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	if err := s.repo.Save(ctx, schedule); err != nil {
		return err
	}
	s.publish(ctx, schedule.IsActive(s.now()), reason)
	s.logger.Info("suspension window set", zap.String("reason", reason))
	return nil
}

// ClearWindow resets the schedule to all-empty (admin command).
func (s *SuspensionService) ClearWindow(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.publish(ctx, false, "")
	s.logger.Info("suspension window cleared")
	return nil
}

func (s *SuspensionService) publish(ctx context.Context, active bool, reason string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSuspensionChanged,
		Timestamp: s.now(),
		Payload:   events.SuspensionChangedPayload{Active: active, Reason: reason},
	})
}
