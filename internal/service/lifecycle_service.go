package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/events"
	"github.com/campfirehq/intake-service/internal/repository"
	apperrors "github.com/campfirehq/intake-service/pkg/util/errorutil"
)

// LifecycleService owns ticket state transitions. The workspace name and
// parent partition are the external rendering of state; this service is the
// only writer of both.
type LifecycleService struct {
	chatc      chat.Client
	registry   *TicketRegistry
	audit      repository.AuditRepository
	exports    repository.ExportRepository
	dispatcher events.Dispatcher
	chatCfg    config.ChatConfig
	intake     config.IntakeConfig
	logger     *zap.Logger
	now        func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	Chat       chat.Client
	Registry   *TicketRegistry
	AuditRepo  repository.AuditRepository
	ExportRepo repository.ExportRepository
	Dispatcher events.Dispatcher
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies, chatCfg config.ChatConfig, intake config.IntakeConfig, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		chatc:      deps.Chat,
		registry:   deps.Registry,
		audit:      deps.AuditRepo,
		exports:    deps.ExportRepo,
		dispatcher: deps.Dispatcher,
		chatCfg:    chatCfg,
		intake:     intake,
		logger:     logger,
		now:        time.Now,
	}
}

// Approve moves a ticket one step forward in the review pipeline. Reaching
// Approved grants the role and posts the confirmation prompt; the applicant
// (or the one-hour grace sweep) finalizes from there.
func (s *LifecycleService) Approve(ctx context.Context, ticketID int64, actor string) (*domain.Ticket, error) {
	ticket, err := s.mustFind(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	var target domain.TicketState
	switch ticket.State {
	case domain.StateFirstReview:
		target = domain.StateSecondReview
	case domain.StateSecondReview:
		target = domain.StateApproved
	default:
		return nil, apperrors.NewValidationError("ticket is not awaiting review approval", map[string]any{"state": ticket.State})
	}
	if err := s.transition(ctx, ticket, target, actor, ""); err != nil {
		return nil, err
	}
	if target == domain.StateApproved {
		if err := s.chatc.GrantRole(ctx, ticket.CreatorID, s.chatCfg.ApprovedRoleID); err != nil {
			s.logger.Error("role grant failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
		prompt := chat.OutgoingMessage{
			Content: "Your application is approved. Press confirm to finish up; otherwise this closes automatically in about an hour. " + domain.TagAwaitConfirm,
			Buttons: []chat.Button{{Label: "Confirm", CustomID: fmt.Sprintf("confirm:%d", ticket.ID)}},
		}
		if _, err := s.chatc.SendMessage(ctx, ticket.WorkspaceID, prompt); err != nil {
			s.logger.Warn("confirmation prompt failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return ticket, nil
}

// Confirm is the applicant accepting an approved ticket; it finalizes without
// a timeout report.
func (s *LifecycleService) Confirm(ctx context.Context, ticketID int64, applicantID string) error {
	ticket, err := s.mustFind(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.CreatorID != applicantID {
		return apperrors.NewForbidden("only the applicant can confirm")
	}
	if ticket.State != domain.StateApproved {
		return apperrors.NewValidationError("ticket is not awaiting confirmation", map[string]any{"state": ticket.State})
	}
	return s.Finalize(ctx, ticket, "confirmed")
}

// Finalize closes out an Approved ticket: permissions locked read-only, then
// archived with no timeout-reason report. Used on applicant confirm and by
// the grace-period sweep.
func (s *LifecycleService) Finalize(ctx context.Context, ticket *domain.Ticket, via string) error {
	s.lockWorkspace(ctx, ticket)
	return s.transition(ctx, ticket, domain.StateArchived, "system", via)
}

// ArchiveIdle archives a ticket whose idle time passed the archive threshold,
// reporting the reason in the workspace and by best-effort DM.
func (s *LifecycleService) ArchiveIdle(ctx context.Context, ticket *domain.Ticket) error {
	notice := "This workspace has been inactive too long and is being closed. Reason: idle timeout."
	if _, err := s.chatc.SendMessage(ctx, ticket.WorkspaceID, chat.OutgoingMessage{Content: notice}); err != nil {
		s.logger.Warn("idle-timeout notice failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	if err := s.chatc.SendDirect(ctx, ticket.CreatorID, fmt.Sprintf("Your review ticket #%d was closed for inactivity.", ticket.ID)); err != nil {
		s.logger.Info("idle-timeout DM undeliverable", zap.String("applicant_id", ticket.CreatorID), zap.Error(err))
	}
	s.lockWorkspace(ctx, ticket)
	return s.transition(ctx, ticket, domain.StateArchived, "system", "idle timeout")
}

// Remind posts the idle reminder and tries a DM. The reminder carries its tag
// so later sweeps know it was already issued for this idle period.
func (s *LifecycleService) Remind(ctx context.Context, ticket *domain.Ticket) error {
	content := "Still there? This workspace has been quiet for a while and will close if it stays inactive. " + domain.TagReminder
	if _, err := s.chatc.SendMessage(ctx, ticket.WorkspaceID, chat.OutgoingMessage{Content: content}); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	if err := s.chatc.SendDirect(ctx, ticket.CreatorID, fmt.Sprintf("Your review ticket #%d is waiting for you.", ticket.ID)); err != nil {
		s.logger.Info("reminder DM undeliverable", zap.String("applicant_id", ticket.CreatorID), zap.Error(err))
	}
	s.recordAudit(ctx, ticket, "reminded", nil)
	return nil
}

// AdvanceState is the manual recovery command. Without force it honors the
// pipeline transition table; with force it moves any state to any state.
func (s *LifecycleService) AdvanceState(ctx context.Context, ticketID int64, target domain.TicketState, actor, reason string, force bool) (*domain.Ticket, error) {
	ticket, err := s.mustFind(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.State == target {
		return ticket, nil
	}
	if !force && !domain.CanTransition(ticket.State, target) {
		return nil, apperrors.NewValidationError("transition not allowed by the pipeline", map[string]any{
			"from": ticket.State,
			"to":   target,
		})
	}
	if err := s.transition(ctx, ticket, target, actor, reason); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ForceArchive archives a ticket on admin demand with a visible note.
func (s *LifecycleService) ForceArchive(ctx context.Context, ticketID int64, actor, note string) error {
	ticket, err := s.mustFind(ctx, ticketID)
	if err != nil {
		return err
	}
	if note != "" {
		if _, err := s.chatc.SendMessage(ctx, ticket.WorkspaceID, chat.OutgoingMessage{Content: note}); err != nil {
			s.logger.Warn("force-archive note failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.lockWorkspace(ctx, ticket)
	return s.transition(ctx, ticket, domain.StateArchived, actor, note)
}

// BulkDeduplicate finds every workspace embedding the applicant's identity and
// removes all but the newest. With dryRun it only reports what would go.
func (s *LifecycleService) BulkDeduplicate(ctx context.Context, applicantID string, dryRun bool) ([]domain.Ticket, error) {
	tickets, err := s.registry.FindByCreatorAll(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if len(tickets) <= 1 {
		return nil, nil
	}
	newest := 0
	for i := range tickets {
		if tickets[i].CreatedAt.After(tickets[newest].CreatedAt) {
			newest = i
		}
	}
	var removed []domain.Ticket
	for i := range tickets {
		if i == newest {
			continue
		}
		removed = append(removed, tickets[i])
		if dryRun {
			continue
		}
		if err := s.exportAndDelete(ctx, &tickets[i]); err != nil {
			s.logger.Error("dedupe removal failed", zap.Int64("ticket_id", tickets[i].ID), zap.Error(err))
		}
	}
	return removed, nil
}

// ExportAndPurge stores a transcript for every workspace in the category and
// then deletes it. Per-workspace failures are logged and skipped.
func (s *LifecycleService) ExportAndPurge(ctx context.Context, category domain.Category) (int, error) {
	tickets, err := s.registry.Tickets(ctx, category)
	if err != nil {
		return 0, err
	}
	purged := 0
	for i := range tickets {
		if err := s.exportAndDelete(ctx, &tickets[i]); err != nil {
			s.logger.Error("export-and-purge failed for workspace",
				zap.Int64("ticket_id", tickets[i].ID), zap.Error(err))
			continue
		}
		purged++
	}
	return purged, nil
}

func (s *LifecycleService) exportAndDelete(ctx context.Context, ticket *domain.Ticket) error {
	history, err := s.chatc.History(ctx, ticket.WorkspaceID, s.intake.HistoryLimit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	transcript := make([]repository.TranscriptMessage, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- { // history is newest first
		m := history[i]
		transcript = append(transcript, repository.TranscriptMessage{
			AuthorID:  m.AuthorID,
			Automated: m.Automated,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	if s.exports != nil {
		export := &repository.WorkspaceExport{
			TicketID:      ticket.ID,
			ApplicantID:   ticket.CreatorID,
			WorkspaceName: domain.WorkspaceName(ticket.State, ticket.ID),
			Transcript:    transcript,
		}
		if err := s.exports.Create(ctx, export); err != nil {
			return fmt.Errorf("store export: %w", err)
		}
	}
	if err := s.chatc.DeleteWorkspace(ctx, ticket.WorkspaceID); err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	s.recordAudit(ctx, ticket, "purged", nil)
	return nil
}

// lockWorkspace cuts the applicant down to read-only and posts the lock
// notice the scanner recognizes.
func (s *LifecycleService) lockWorkspace(ctx context.Context, ticket *domain.Ticket) {
	overwrites := []chat.AccessOverwrite{
		{TargetID: ticket.CreatorID, Allow: []string{"view"}, Deny: []string{"send"}},
		{TargetID: s.chatCfg.StaffRoleID, Allow: []string{"view", "send", "manage"}},
	}
	if err := s.chatc.EditWorkspaceAccess(ctx, ticket.WorkspaceID, overwrites); err != nil {
		s.logger.Error("workspace lockdown failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	if _, err := s.chatc.SendMessage(ctx, ticket.WorkspaceID, chat.OutgoingMessage{Content: "Workspace locked. " + domain.TagLocked}); err != nil {
		s.logger.Warn("lock notice failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
}

// transition renames and moves the workspace to render the new state, then
// records and publishes the change.
func (s *LifecycleService) transition(ctx context.Context, ticket *domain.Ticket, target domain.TicketState, actor, reason string) error {
	oldState := ticket.State
	if err := s.chatc.RenameWorkspace(ctx, ticket.WorkspaceID, domain.WorkspaceName(target, ticket.ID)); err != nil {
		return fmt.Errorf("rename workspace: %w", err)
	}
	targetCategory := s.targetCategory(ticket, target)
	if targetCategory != ticket.Category {
		if err := s.chatc.MoveWorkspace(ctx, ticket.WorkspaceID, s.chatCfg.CategoryID(targetCategory)); err != nil {
			return fmt.Errorf("move workspace: %w", err)
		}
		ticket.Category = targetCategory
	}
	ticket.State = target
	s.recordAudit(ctx, ticket, "state_changed", map[string]any{
		"old_state": string(oldState),
		"new_state": string(target),
		"actor":     actor,
		"reason":    reason,
	})
	s.publish(ctx, events.TicketStateChangedPayload{
		TicketID:    ticket.ID,
		ApplicantID: ticket.CreatorID,
		OldState:    oldState,
		NewState:    target,
		Reason:      reason,
	})
	s.logger.Info("ticket state changed",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("old_state", string(oldState)),
		zap.String("new_state", string(target)),
		zap.String("actor", actor))
	return nil
}

// targetCategory keeps a FirstReview ticket in whichever first-review
// partition admission placed it; other states have a single home.
func (s *LifecycleService) targetCategory(ticket *domain.Ticket, target domain.TicketState) domain.Category {
	if target == domain.StateFirstReview &&
		(ticket.Category == domain.CategoryFirstReviewPrimary || ticket.Category == domain.CategoryFirstReviewOverflow) {
		return ticket.Category
	}
	return domain.HomeCategory(target)
}

func (s *LifecycleService) mustFind(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.registry.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *LifecycleService) recordAudit(ctx context.Context, ticket *domain.Ticket, action string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &repository.AuditEntry{
		TicketID:    &ticket.ID,
		ApplicantID: ticket.CreatorID,
		Action:      action,
		Detail:      detail,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *LifecycleService) publish(ctx context.Context, payload events.TicketStateChangedPayload) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStateChanged,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
