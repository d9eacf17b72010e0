package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/dto"
	"github.com/gofiber/fiber/v2"
)

const storePingTimeout = 2 * time.Second

type storePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storeDriver string
	store       storePinger
}

func NewHealthHandler(storeDriver string, store storePinger) *HealthHandler {
	return &HealthHandler{storeDriver: storeDriver, store: store}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	storeStatus := h.storeDriver
	ctx, cancel := context.WithTimeout(c.UserContext(), storePingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("user store ping failed", "driver", h.storeDriver, "error", err)
		storeStatus += ": unhealthy"
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Message:   "Backend server is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Store:     storeStatus,
	})
}
