package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/http/handlers"
	"github.com/spec-kit/support-router/internal/auth"
)

// RouteConfig bundles the handlers and middleware needed to wire the app.
type RouteConfig struct {
	Gateway *handlers.GatewayHandler
	Staff   *handlers.StaffHandler
	Users   *handlers.UsersHandler
	Admin   *handlers.AdminHandler
	Health  *handlers.HealthHandler
	Auth    *auth.AuthMiddleware
}

// RegisterRoutes mounts every route group on the app.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Inbound traffic from the messaging gateway, authenticated by shared
	// secret rather than user tokens.
	gateway := app.Group("/gateway", cfg.Gateway.VerifySecret)
	gateway.Post("/messages", cfg.Gateway.Inbound)
	gateway.Post("/token", cfg.Gateway.IssueToken)

	api := app.Group("/api", cfg.Auth.Handle)

	// RequireAgent is attached per route rather than on a /tickets group so
	// the end-user rating route below stays reachable for plain users.
	api.Post("/tickets/:id/claim", auth.RequireAgent(), cfg.Staff.Claim)
	api.Post("/tickets/:id/reply", auth.RequireAgent(), cfg.Staff.Reply)
	api.Post("/tickets/:id/close", auth.RequireAgent(), cfg.Staff.Close)

	api.Post("/tickets/:id/rating", auth.RequireAny(), cfg.Users.Rate)
	api.Put("/me/language", auth.RequireAny(), cfg.Users.SetLanguage)

	admin := api.Group("/admin", auth.RequireOwner())
	admin.Post("/agents", cfg.Admin.AssignAgents)
	admin.Delete("/agents", cfg.Admin.UnassignAgents)
	admin.Get("/agents", cfg.Admin.Roster)
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Get("/dashboard", cfg.Admin.Dashboard)
	admin.Get("/tickets/unresolved", cfg.Admin.Unresolved)
	admin.Get("/tickets/search", cfg.Admin.Search)
}
