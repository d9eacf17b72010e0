package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/cache"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves read-only diagnostics behind the admin JWT.
type AdminHandler struct {
	users *services.UserService
	cache *cache.IdentityCache
}

func NewAdminHandler(users *services.UserService, c *cache.IdentityCache) *AdminHandler {
	return &AdminHandler{users: users, cache: c}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		slog.Error("list users failed", "request_id", requestID(c), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to list users")
	}
	return c.JSON(users)
}

func (h *AdminHandler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.cache.Stats())
}
