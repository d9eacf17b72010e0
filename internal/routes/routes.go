package routes

import (
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/origin"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health *handlers.HealthHandler
	Gate   *handlers.GateHandler
	User   *handlers.UserHandler
	Widget *handlers.WidgetHandler
	// Admin is optional; its routes are registered only with AdminSecret.
	Admin       *handlers.AdminHandler
	AdminSecret string
}

func Setup(app *fiber.App, policy *origin.Policy, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.CORS(policy))

	api.Get("/health", h.Health.Check)

	// Password gate
	api.Post("/auth/password", h.Gate.Password)
	api.Get("/auth/check", h.Gate.Check)

	// Email identity
	api.Post("/users", h.User.Create)
	api.Get("/users/me", h.User.Me)
	api.Post("/logout", h.User.Logout)

	// Airbyte widget
	api.Post("/airbyte/token", h.Widget.Token)

	if h.Admin != nil && h.AdminSecret != "" {
		admin := api.Group("/admin", middleware.AdminProtected(h.AdminSecret), middleware.AdminRequired())
		admin.Get("/users", h.Admin.ListUsers)
		admin.Get("/cache", h.Admin.CacheStats)
	}
}
