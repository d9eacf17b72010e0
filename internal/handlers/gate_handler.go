package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/dto"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/services"
	"github.com/gofiber/fiber/v2"
)

type GateHandler struct {
	gate    *services.GateService
	cookies CookiePolicy
}

func NewGateHandler(gate *services.GateService, cookies CookiePolicy) *GateHandler {
	return &GateHandler{gate: gate, cookies: cookies}
}

// Password checks the shared webapp password and sets the gate cookie.
func (h *GateHandler) Password(c *fiber.Ctx) error {
	var req dto.PasswordRequest
	if err := parseBody(c, &req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	err := h.gate.Verify(req.Password)
	switch {
	case err == nil:
		h.cookies.SetGate(c)
		return c.JSON(dto.PasswordResponse{Success: true})
	case errors.Is(err, services.ErrPasswordRequired):
		return errorJSON(c, fiber.StatusBadRequest, "Password is required")
	case errors.Is(err, services.ErrGateNotConfigured):
		slog.Error("password submitted but SONAR_WEBAPP_PASSWORD is not set")
		return errorJSON(c, fiber.StatusInternalServerError, "Server configuration error")
	case errors.Is(err, services.ErrInvalidPassword):
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid password")
	}
	return err
}

// Check reports gate state. Without a configured password every caller is
// authenticated and no password is required.
func (h *GateHandler) Check(c *fiber.Ctx) error {
	authenticated, required := h.gate.Check(strings.Clone(c.Cookies(services.GateCookieName)))
	return c.JSON(dto.AuthCheckResponse{
		Authenticated:    authenticated,
		PasswordRequired: required,
	})
}
