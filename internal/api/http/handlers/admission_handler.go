package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campfirehq/intake-service/internal/api/dto"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/service"
	apperrors "github.com/campfirehq/intake-service/pkg/util/errorutil"
)

// AdmissionHandler binds the admission and confirmation operations for the
// gateway.
type AdmissionHandler struct {
	admissions *service.AdmissionService
	lifecycle  *service.LifecycleService
	limiter    *service.AdmissionLimiter
}

// NewAdmissionHandler constructs handler.
func NewAdmissionHandler(admissions *service.AdmissionService, lifecycle *service.LifecycleService, limiter *service.AdmissionLimiter) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions, lifecycle: lifecycle, limiter: limiter}
}

// Request POST /admissions.
func (h *AdmissionHandler) Request(c *fiber.Ctx) error {
	var req dto.AdmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ApplicantID == "" {
		return apperrors.NewValidationError("applicant_id required", nil)
	}

	if h.limiter != nil {
		retryAfter, ok, err := h.limiter.Allow(c.Context(), req.ApplicantID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !ok {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{"data": dto.AdmissionRejected{
				Reason:     string(domain.RejectRateLimited),
				Message:    "too many requests, slow down",
				RetryAfter: retryAfter,
			}})
		}
	}

	ticket, err := h.admissions.RequestAdmission(c.UserContext(), service.AdmissionRequest{
		ApplicantID: req.ApplicantID,
		Username:    req.Username,
		RoleIDs:     req.RoleIDs,
	})
	if err != nil {
		var rejection *domain.Rejection
		if errors.As(err, &rejection) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"data": rejectionResponse(rejection)})
		}
		return apperrors.MapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AdmissionGranted{
		TicketID:    ticket.ID,
		WorkspaceID: ticket.WorkspaceID,
		Link:        ticket.Link,
		Category:    string(ticket.Category),
	}})
}

// Confirm POST /admissions/confirm.
func (h *AdmissionHandler) Confirm(c *fiber.Ctx) error {
	var req dto.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == 0 || req.ApplicantID == "" {
		return apperrors.NewValidationError("ticket_id and applicant_id required", nil)
	}
	if err := h.lifecycle.Confirm(c.UserContext(), req.TicketID, req.ApplicantID); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"confirmed": true}})
}

func rejectionResponse(rejection *domain.Rejection) dto.AdmissionRejected {
	resp := dto.AdmissionRejected{
		Reason:       string(rejection.Reason),
		Message:      rejection.Message,
		ExistingLink: rejection.ExistingLink,
	}
	if rejection.ResumeAt != nil {
		unix := rejection.ResumeAt.Unix()
		resp.ResumeAt = &unix
	}
	return resp
}
