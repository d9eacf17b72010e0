package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/dto"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/services"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/session"
	"github.com/gofiber/fiber/v2"
)

type WidgetHandler struct {
	widgets *services.WidgetService
}

func NewWidgetHandler(widgets *services.WidgetService) *WidgetHandler {
	return &WidgetHandler{widgets: widgets}
}

// Token issues an Airbyte widget token for the cookie's email, scoped to the
// request's Origin when that origin is allow-listed.
func (h *WidgetHandler) Token(c *fiber.Ctx) error {
	claim := identityClaim(c)
	token, err := h.widgets.Issue(c.UserContext(), claim, c.Get(fiber.HeaderOrigin))
	if err != nil {
		if errors.Is(err, session.ErrNoIdentity) {
			return errorJSON(c, fiber.StatusUnauthorized, "User not authenticated")
		}
		slog.Error("widget token failed",
			"email", claim,
			"operation", "airbyte_token",
			"request_id", requestID(c),
			"error", err,
		)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to generate widget token")
	}
	return c.JSON(dto.WidgetTokenResponse{Token: token})
}
