package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campfirehq/intake-service/internal/api/dto"
	"github.com/campfirehq/intake-service/internal/auth"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/service"
	apperrors "github.com/campfirehq/intake-service/pkg/util/errorutil"
)

// AdminHandler binds the administrative command surface.
type AdminHandler struct {
	quota       *service.QuotaService
	suspensions *service.SuspensionService
	lifecycle   *service.LifecycleService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(quota *service.QuotaService, suspensions *service.SuspensionService, lifecycle *service.LifecycleService) *AdminHandler {
	return &AdminHandler{quota: quota, suspensions: suspensions, lifecycle: lifecycle}
}

// SetSuspension PUT /admin/suspension.
func (h *AdminHandler) SetSuspension(c *fiber.Ctx) error {
	var req dto.SuspensionWindowRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	err := h.suspensions.SetWindow(c.UserContext(), req.Reason, unixPtr(req.StartAt), unixPtr(req.EndAt))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"suspended": true}})
}

// ClearSuspension DELETE /admin/suspension.
func (h *AdminHandler) ClearSuspension(c *fiber.Ctx) error {
	if err := h.suspensions.ClearWindow(c.UserContext()); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"suspended": false}})
}

// GetSuspension GET /admin/suspension.
func (h *AdminHandler) GetSuspension(c *fiber.Ctx) error {
	schedule, err := h.suspensions.Current(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	resp := fiber.Map{
		"suspended": schedule.Suspended,
		"reason":    schedule.Reason,
	}
	if schedule.StartAt != nil {
		resp["start_at"] = schedule.StartAt.Unix()
	}
	if schedule.EndAt != nil {
		resp["end_at"] = schedule.EndAt.Unix()
	}
	return c.JSON(fiber.Map{"data": resp})
}

// ResetQuota POST /admin/quota/reset.
func (h *AdminHandler) ResetQuota(c *fiber.Ctx) error {
	if err := h.quota.Reset(c.UserContext()); err != nil {
		return apperrors.MapError(err)
	}
	return h.quotaResponse(c)
}

// SetQuota POST /admin/quota/set.
func (h *AdminHandler) SetQuota(c *fiber.Ctx) error {
	var req dto.QuotaAmountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.quota.Set(c.UserContext(), req.Amount); err != nil {
		return apperrors.MapError(err)
	}
	return h.quotaResponse(c)
}

// AddQuota POST /admin/quota/add.
func (h *AdminHandler) AddQuota(c *fiber.Ctx) error {
	var req dto.QuotaAmountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.quota.Add(c.UserContext(), req.Amount); err != nil {
		return apperrors.MapError(err)
	}
	return h.quotaResponse(c)
}

// ApproveTicket POST /admin/tickets/:id/approve.
func (h *AdminHandler) ApproveTicket(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.Approve(c.UserContext(), ticketID, actorName(c))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AdvanceTicket POST /admin/tickets/:id/state.
func (h *AdminHandler) AdvanceTicket(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.AdvanceStateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	target := domain.TicketState(req.State)
	if target.NamePrefix() == "" {
		return apperrors.NewValidationError("unknown target state", map[string]any{"state": req.State})
	}
	ticket, err := h.lifecycle.AdvanceState(c.UserContext(), ticketID, target, actorName(c), req.Reason, req.Force)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ForceArchive POST /admin/tickets/:id/archive.
func (h *AdminHandler) ForceArchive(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.ForceArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.lifecycle.ForceArchive(c.UserContext(), ticketID, actorName(c), req.Note); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"archived": true}})
}

// Deduplicate POST /admin/deduplicate.
func (h *AdminHandler) Deduplicate(c *fiber.Ctx) error {
	var req dto.DeduplicateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ApplicantID == "" {
		return apperrors.NewValidationError("applicant_id required", nil)
	}
	removed, err := h.lifecycle.BulkDeduplicate(c.UserContext(), req.ApplicantID, req.DryRun)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.TicketSummary, 0, len(removed))
	for i := range removed {
		items = append(items, ticketSummary(&removed[i]))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"dry_run": req.DryRun, "removed": items}})
}

// Purge POST /admin/purge.
func (h *AdminHandler) Purge(c *fiber.Ctx) error {
	var req dto.PurgeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category := domain.Category(req.Category)
	if !validCategory(category) {
		return apperrors.NewValidationError("unknown category", map[string]any{"category": req.Category})
	}
	purged, err := h.lifecycle.ExportAndPurge(c.UserContext(), category)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"purged": purged}})
}

func (h *AdminHandler) quotaResponse(c *fiber.Ctx) error {
	remaining, err := h.quota.Remaining(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"remaining": remaining}})
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	ticketID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || ticketID <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return ticketID, nil
}

func actorName(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.Staff != nil {
		return principal.Staff.Username
	}
	return "staff"
}

func validCategory(category domain.Category) bool {
	for _, known := range service.AllCategories() {
		if category == known {
			return true
		}
	}
	return false
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		TicketID:    ticket.ID,
		ApplicantID: ticket.CreatorID,
		State:       string(ticket.State),
		Category:    string(ticket.Category),
		Link:        ticket.Link,
		CreatedAt:   ticket.CreatedAt.Unix(),
	}
}

func unixPtr(unix *int64) *time.Time {
	if unix == nil {
		return nil
	}
	t := time.Unix(*unix, 0).UTC()
	return &t
}
