package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/observability"
)

// ActivitySnapshot is what one history read tells the scanner about a
// workspace. Everything here is re-derived on every sweep; nothing is
// persisted.
type ActivitySnapshot struct {
	LastActivity    time.Time
	Reminded        bool
	Locked          bool
	AwaitingConfirm bool
	AwaitingSince   time.Time
}

// AssessActivity derives the snapshot from a bounded history window, most
// recent first. The idle clock runs from the newest non-automated message, so
// reminders never reset it; with no human message the creation time counts.
func AssessActivity(history []chat.Message, createdAt time.Time) ActivitySnapshot {
	snapshot := ActivitySnapshot{LastActivity: createdAt}
	sawNewestAutomated := false
	for _, msg := range history {
		if !msg.Automated {
			snapshot.LastActivity = msg.Timestamp
			break
		}
		if !sawNewestAutomated {
			sawNewestAutomated = true
			if strings.Contains(msg.Content, domain.TagAwaitConfirm) {
				snapshot.AwaitingConfirm = true
				snapshot.AwaitingSince = msg.Timestamp
			}
		}
		if strings.Contains(msg.Content, domain.TagReminder) {
			snapshot.Reminded = true
		}
	}
	for _, msg := range history {
		if msg.Automated && strings.Contains(msg.Content, domain.TagLocked) {
			snapshot.Locked = true
			break
		}
	}
	return snapshot
}

// Scanner is the periodic lifecycle sweep over all monitored categories.
type Scanner struct {
	registry  *TicketRegistry
	lifecycle *LifecycleService
	chatc     chat.Client
	metrics   *observability.Metrics
	logger    *zap.Logger

	remindAfter  time.Duration
	archiveAfter time.Duration
	confirmGrace time.Duration
	historyLimit int
	opTimeout    time.Duration
	now          func() time.Time
}

// NewScanner constructs the sweep.
func NewScanner(registry *TicketRegistry, lifecycle *LifecycleService, chatc chat.Client, metrics *observability.Metrics, logger *zap.Logger, remindAfter, archiveAfter, confirmGrace time.Duration, historyLimit int, opTimeout time.Duration) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = 100
	}
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &Scanner{
		registry:     registry,
		lifecycle:    lifecycle,
		chatc:        chatc,
		metrics:      metrics,
		logger:       logger,
		remindAfter:  remindAfter,
		archiveAfter: archiveAfter,
		confirmGrace: confirmGrace,
		historyLimit: historyLimit,
		opTimeout:    opTimeout,
		now:          time.Now,
	}
}

// Sweep walks every workspace in the monitored categories once. A failure on
// one workspace is logged and the sweep moves on; each workspace gets its own
// deadline so one slow collaborator call cannot stall the rest.
func (s *Scanner) Sweep(ctx context.Context) {
	start := s.now()
	for _, category := range ReviewCategories() {
		tickets, err := s.registry.Tickets(ctx, category)
		if err != nil {
			s.logger.Error("sweep: listing category failed",
				zap.String("category", string(category)), zap.Error(err))
			continue
		}
		for i := range tickets {
			s.sweepOne(ctx, &tickets[i])
		}
	}
	s.logger.Info("sweep finished", zap.Duration("took", s.now().Sub(start)))
}

func (s *Scanner) sweepOne(ctx context.Context, ticket *domain.Ticket) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.process(opCtx, ticket); err != nil {
		s.metrics.RecordSweepAction("failed")
		s.logger.Error("sweep: workspace processing failed",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("workspace_id", ticket.WorkspaceID),
			zap.Error(err))
	}
}

func (s *Scanner) process(ctx context.Context, ticket *domain.Ticket) error {
	history, err := s.chatc.History(ctx, ticket.WorkspaceID, s.historyLimit)
	if err != nil {
		return err
	}
	now := s.now()
	snapshot := AssessActivity(history, ticket.CreatedAt)

	// Approved workspaces follow their own grace period and never take the
	// remind/idle-archive path; those transitions only apply to the two
	// review stages. A reply that is not an explicit confirmation restarts
	// the grace clock but does not cancel finalization.
	if ticket.State == domain.StateApproved {
		since := snapshot.LastActivity
		if snapshot.AwaitingConfirm {
			since = snapshot.AwaitingSince
		}
		if now.Sub(since) > s.confirmGrace {
			s.metrics.RecordSweepAction("finalized")
			return s.lifecycle.Finalize(ctx, ticket, "confirmation grace elapsed")
		}
		s.metrics.RecordSweepAction("skipped")
		return nil
	}

	idle := now.Sub(snapshot.LastActivity)
	switch {
	case idle > s.archiveAfter:
		s.metrics.RecordSweepAction("archived")
		return s.lifecycle.ArchiveIdle(ctx, ticket)
	case idle > s.remindAfter && !snapshot.Reminded && !snapshot.Locked && !snapshot.AwaitingConfirm:
		s.metrics.RecordSweepAction("reminded")
		return s.lifecycle.Remind(ctx, ticket)
	default:
		s.metrics.RecordSweepAction("skipped")
		return nil
	}
}
