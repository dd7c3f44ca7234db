package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/events"
	"github.com/campfirehq/intake-service/internal/repository"
)

// panelHistoryWindow bounds the marker scan; the panel is expected to sit
// close to the end of the channel.
const panelHistoryWindow = 25

// PanelService keeps one live status message per display channel. It finds
// its prior message by scanning recent history for the panel tag, so a
// restart that lost in-memory state still updates in place.
type PanelService struct {
	chatc       chat.Client
	quota       *QuotaService
	suspensions repository.SuspensionRepository
	chatCfg     config.ChatConfig
	intake      config.IntakeConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewPanelService constructs the renderer.
func NewPanelService(chatc chat.Client, quota *QuotaService, suspensions repository.SuspensionRepository, chatCfg config.ChatConfig, intake config.IntakeConfig, logger *zap.Logger) *PanelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanelService{
		chatc:       chatc,
		quota:       quota,
		suspensions: suspensions,
		chatCfg:     chatCfg,
		intake:      intake,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterHandlers refreshes the panel whenever quota, suspension or ticket
// state moves.
func (p *PanelService) RegisterHandlers(dispatcher events.Dispatcher) {
	handler := func(ctx context.Context, _ events.Event) error {
		p.RefreshLogged(ctx)
		return nil
	}
	dispatcher.Subscribe(events.EventQuotaChanged, handler)
	dispatcher.Subscribe(events.EventSuspensionChanged, handler)
	dispatcher.Subscribe(events.EventAdmissionGranted, handler)
	dispatcher.Subscribe(events.EventTicketStateChanged, handler)
}

// RefreshLogged runs Refresh and logs any failure; panel updates are never
// allowed to fail an enclosing operation.
func (p *PanelService) RefreshLogged(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		p.logger.Error("panel refresh failed", zap.Error(err))
	}
}

// Refresh recomputes the panel content and edits the prior panel message in
// place, or posts a fresh one if none is found in the recent history.
func (p *PanelService) Refresh(ctx context.Context) error {
	if p.chatCfg.PanelChannelID == "" {
		return nil
	}
	msg, err := p.render(ctx)
	if err != nil {
		return err
	}

	history, err := p.chatc.History(ctx, p.chatCfg.PanelChannelID, panelHistoryWindow)
	if err != nil {
		return fmt.Errorf("scan panel channel: %w", err)
	}
	for _, prior := range history {
		if prior.Automated && strings.Contains(prior.Content, domain.TagPanel) {
			return p.chatc.EditMessage(ctx, p.chatCfg.PanelChannelID, prior.ID, msg)
		}
	}
	_, err = p.chatc.SendMessage(ctx, p.chatCfg.PanelChannelID, msg)
	return err
}

func (p *PanelService) render(ctx context.Context) (chat.OutgoingMessage, error) {
	now := p.now()

	remaining, err := p.quota.Remaining(ctx)
	if err != nil {
		return chat.OutgoingMessage{}, fmt.Errorf("read quota: %w", err)
	}
	schedule, err := p.suspensions.Load(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		schedule = &domain.SuspensionSchedule{}
	} else if err != nil {
		return chat.OutgoingMessage{}, fmt.Errorf("load suspension schedule: %w", err)
	}

	suspended := schedule.IsActive(now)
	inHours := p.intake.InOperatingHours(now)
	open := !suspended && inHours && remaining > 0

	var b strings.Builder
	b.WriteString("**Application intake** " + domain.TagPanel + "\n")
	fmt.Fprintf(&b, "Slots left today: %d\n", remaining)
	switch {
	case suspended:
		b.WriteString("Status: suspended")
		if schedule.Reason != "" {
			b.WriteString(": " + schedule.Reason)
		}
		if resume := schedule.ResumeAt(); resume != nil {
			fmt.Fprintf(&b, " (until %s)", resume.In(p.intake.Location()).Format("Jan 2 15:04"))
		}
		b.WriteString("\n")
	case !inHours:
		fmt.Fprintf(&b, "Status: closed, open daily %02d:00-%02d:00\n", p.intake.OpenHour, p.intake.CloseHour)
	case remaining <= 0:
		b.WriteString("Status: closed, today's quota is used up\n")
	default:
		b.WriteString("Status: open\n")
	}

	return chat.OutgoingMessage{
		Content: b.String(),
		Buttons: []chat.Button{{Label: "Request review", CustomID: "admission:request", Disabled: !open}},
	}, nil
}
