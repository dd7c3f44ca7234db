package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/events"
	"github.com/campfirehq/intake-service/internal/observability"
	"github.com/campfirehq/intake-service/internal/repository"
)

// AdmissionRequest is one applicant asking for a review workspace.
type AdmissionRequest struct {
	ApplicantID string
	Username    string
	RoleIDs     []string
}

// AdmissionService runs the synchronous admission pipeline: policy checks in
// order, pessimistic quota reservation, workspace creation, rollback on
// side-effect failure.
type AdmissionService struct {
	chatc       chat.Client
	quota       *QuotaService
	suspensions repository.SuspensionRepository
	audit       repository.AuditRepository
	registry    *TicketRegistry
	guard       *InflightGuard
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	chatCfg     config.ChatConfig
	intake      config.IntakeConfig
	logger      *zap.Logger
	now         func() time.Time
	newTicketID func() int64
}

// AdmissionDependencies bundles collaborators for the admission service.
type AdmissionDependencies struct {
	Chat           chat.Client
	Quota          *QuotaService
	SuspensionRepo repository.SuspensionRepository
	AuditRepo      repository.AuditRepository
	Registry       *TicketRegistry
	Guard          *InflightGuard
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
}

// NewAdmissionService constructs the service.
func NewAdmissionService(deps AdmissionDependencies, chatCfg config.ChatConfig, intake config.IntakeConfig, logger *zap.Logger) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		chatc:       deps.Chat,
		quota:       deps.Quota,
		suspensions: deps.SuspensionRepo,
		audit:       deps.AuditRepo,
		registry:    deps.Registry,
		guard:       deps.Guard,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		chatCfg:     chatCfg,
		intake:      intake,
		logger:      logger,
		now:         time.Now,
		newTicketID: randomTicketID,
	}
}

// RequestAdmission decides one applicant's request. Policy refusals come back
// as *domain.Rejection; anything else is a side-effect failure, already rolled
// back. The in-flight mark is released exactly once on every path.
func (s *AdmissionService) RequestAdmission(ctx context.Context, req AdmissionRequest) (*domain.Ticket, error) {
	if !s.guard.TryAcquire(req.ApplicantID) {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:  domain.RejectAlreadyProcessing,
			Message: "a previous request is still being processed",
		})
	}
	defer s.guard.Release(req.ApplicantID)

	now := s.now()

	schedule, err := s.suspensions.Load(ctx)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load suspension schedule: %w", err)
	}
	if schedule != nil && schedule.IsActive(now) {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:   domain.RejectAdmissionSuspended,
			Message:  schedule.Reason,
			ResumeAt: schedule.ResumeAt(),
		})
	}

	if !s.intake.InOperatingHours(now) {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:  domain.RejectOutsideOperatingHours,
			Message: fmt.Sprintf("intake is open %02d:00-%02d:00", s.intake.OpenHour, s.intake.CloseHour),
		})
	}

	if !s.isEligible(req) {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:  domain.RejectNotEligible,
			Message: "the prerequisite role is required before applying",
		})
	}

	// Archive included: re-admission requires an admin deleting the old
	// workspace first.
	existing, err := s.registry.FindByCreator(ctx, req.ApplicantID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:       domain.RejectDuplicateTicket,
			Message:      "an application workspace already exists",
			ExistingLink: existing.Link,
		})
	}

	remaining, err := s.quota.Remaining(ctx)
	if err != nil {
		return nil, fmt.Errorf("read quota: %w", err)
	}
	if remaining <= 0 {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:  domain.RejectQuotaExhausted,
			Message: "today's admission quota is used up",
		})
	}

	category, err := s.pickCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("capacity check: %w", err)
	}
	if category == "" {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:  domain.RejectCapacityFull,
			Message: "all review partitions are full",
		})
	}

	// Pessimistic reservation: the slot is taken before the workspace
	// exists and refunded if creation fails.
	remaining, err = s.quota.Reserve(ctx)
	if errors.Is(err, ErrQuotaExhausted) {
		return nil, s.reject(ctx, req, &domain.Rejection{
			Reason:  domain.RejectQuotaExhausted,
			Message: "today's admission quota is used up",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}

	ticket, err := s.createWorkspace(ctx, req, category, now)
	if err != nil {
		if refundErr := s.quota.Refund(ctx); refundErr != nil {
			s.logger.Error("quota refund failed after workspace creation error",
				zap.String("applicant_id", req.ApplicantID), zap.Error(refundErr))
		}
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	s.welcome(ctx, req, ticket)
	s.recordAudit(ctx, &ticket.ID, req.ApplicantID, "admitted", map[string]any{
		"category":  string(category),
		"remaining": remaining,
	})
	s.metrics.RecordAdmission("granted")
	s.publish(ctx, events.EventAdmissionGranted, events.AdmissionGrantedPayload{
		TicketID:    ticket.ID,
		ApplicantID: req.ApplicantID,
		Category:    category,
		Remaining:   remaining,
	})
	s.logger.Info("admission granted",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("applicant_id", req.ApplicantID),
		zap.String("category", string(category)),
		zap.Int("remaining", remaining))
	return ticket, nil
}

func (s *AdmissionService) isEligible(req AdmissionRequest) bool {
	for _, override := range s.chatCfg.StaffOverrideIDs {
		if override == req.ApplicantID {
			return true
		}
	}
	if s.chatCfg.RequiredRoleID == "" {
		return true
	}
	for _, role := range req.RoleIDs {
		if role == s.chatCfg.RequiredRoleID {
			return true
		}
	}
	return false
}

// pickCategory returns the first-review partition with a free slot, primary
// before overflow, or "" when both are at the ceiling.
func (s *AdmissionService) pickCategory(ctx context.Context) (domain.Category, error) {
	for _, category := range []domain.Category{domain.CategoryFirstReviewPrimary, domain.CategoryFirstReviewOverflow} {
		count, err := s.registry.Count(ctx, category)
		if err != nil {
			return "", err
		}
		if count < s.intake.CategoryCapacity {
			return category, nil
		}
	}
	return "", nil
}

func (s *AdmissionService) createWorkspace(ctx context.Context, req AdmissionRequest, category domain.Category, now time.Time) (*domain.Ticket, error) {
	id := s.newTicketID()
	ws, err := s.chatc.CreateWorkspace(ctx, chat.CreateWorkspaceInput{
		Name:     domain.WorkspaceName(domain.StateFirstReview, id),
		Topic:    domain.RenderDescriptor(id, req.ApplicantID, now),
		ParentID: s.chatCfg.CategoryID(category),
		Overwrites: []chat.AccessOverwrite{
			{TargetID: req.ApplicantID, Allow: []string{"view", "send"}},
			{TargetID: s.chatCfg.StaffRoleID, Allow: []string{"view", "send", "manage"}},
		},
	})
	if err != nil {
		return nil, err
	}
	return &domain.Ticket{
		ID:          id,
		CreatorID:   req.ApplicantID,
		State:       domain.StateFirstReview,
		Category:    category,
		WorkspaceID: ws.ID,
		Link:        ws.Link,
		CreatedAt:   now,
	}, nil
}

// welcome posts the intro message and tries a DM with the workspace link. The
// DM is best-effort; failure degrades to the in-workspace notice alone.
func (s *AdmissionService) welcome(ctx context.Context, req AdmissionRequest, ticket *domain.Ticket) {
	content := fmt.Sprintf("Welcome! Your review ticket #%d is open. A reviewer will pick it up here.", ticket.ID)
	if _, err := s.chatc.SendMessage(ctx, ticket.WorkspaceID, chat.OutgoingMessage{Content: content}); err != nil {
		s.logger.Warn("welcome message failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	if err := s.chatc.SendDirect(ctx, req.ApplicantID, "Your review workspace is ready: "+ticket.Link); err != nil {
		s.logger.Info("welcome DM undeliverable", zap.String("applicant_id", req.ApplicantID), zap.Error(err))
	}
}

// reject records and publishes a policy refusal, then returns it unchanged so
// callers can surface it.
func (s *AdmissionService) reject(ctx context.Context, req AdmissionRequest, rejection *domain.Rejection) error {
	s.metrics.RecordAdmission(string(rejection.Reason))
	s.recordAudit(ctx, nil, req.ApplicantID, "rejected", map[string]any{
		"reason": string(rejection.Reason),
	})
	s.publish(ctx, events.EventAdmissionRejected, events.AdmissionRejectedPayload{
		ApplicantID: req.ApplicantID,
		Reason:      rejection.Reason,
	})
	s.logger.Info("admission rejected",
		zap.String("applicant_id", req.ApplicantID),
		zap.String("reason", string(rejection.Reason)))
	return rejection
}

func (s *AdmissionService) recordAudit(ctx context.Context, ticketID *int64, applicantID, action string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &repository.AuditEntry{
		TicketID:    ticketID,
		ApplicantID: applicantID,
		Action:      action,
		Detail:      detail,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *AdmissionService) publish(ctx context.Context, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// randomTicketID generates an 8-digit id. Uniqueness is by convention, not
// checked, matching how the workspace descriptors are consumed.
func randomTicketID() int64 {
	return 10000000 + rand.Int63n(90000000)
}
