package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campfirehq/intake-service/internal/api/http/handlers"
	"github.com/campfirehq/intake-service/internal/auth"
	"github.com/campfirehq/intake-service/internal/domain"
)

// RouteConfig bundles everything RegisterRoutes needs.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Admission      *handlers.AdmissionHandler
	Admin          *handlers.AdminHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
	GatewayToken   string
}

// RegisterRoutes wires all HTTP endpoints.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Staff.ChangePassword)
	authGroup.Post("/password/reset", cfg.Staff.ResetPassword)

	// Gateway-facing endpoints, invoked by the chat gateway on button presses.
	admissions := app.Group("/admissions", GatewayAuth(cfg.GatewayToken))
	admissions.Post("/", cfg.Admission.Request)
	admissions.Post("/confirm", cfg.Admission.Confirm)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)

	suspension := admin.Group("/suspension", auth.RequireStaffRole(domain.StaffRoleAdmin))
	suspension.Get("/", cfg.Admin.GetSuspension)
	suspension.Put("/", cfg.Admin.SetSuspension)
	suspension.Delete("/", cfg.Admin.ClearSuspension)

	quota := admin.Group("/quota", auth.RequireStaffRole(domain.StaffRoleAdmin))
	quota.Post("/reset", cfg.Admin.ResetQuota)
	quota.Put("/", cfg.Admin.SetQuota)
	quota.Post("/add", cfg.Admin.AddQuota)

	tickets := admin.Group("/tickets", auth.RequireStaffRole(domain.StaffRoleAdmin, domain.StaffRoleReviewer))
	tickets.Post("/:id/approve", cfg.Admin.ApproveTicket)
	tickets.Post("/:id/state", cfg.Admin.AdvanceTicket)
	tickets.Post("/:id/archive", cfg.Admin.ForceArchive)

	staffAdmin := admin.Group("/staff", auth.RequireStaffRole(domain.StaffRoleAdmin))
	staffAdmin.Post("/password-reset", cfg.Staff.RequestPasswordReset)

	maintenance := admin.Group("/maintenance", auth.RequireStaffRole(domain.StaffRoleAdmin))
	maintenance.Post("/deduplicate", cfg.Admin.Deduplicate)
	maintenance.Post("/purge", cfg.Admin.Purge)
}
