package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors that escape a handler. Server errors are
// logged and never leak details to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	switch code {
	case fiber.StatusMethodNotAllowed:
		message = "Method not allowed"
	case fiber.StatusNotFound:
		message = "Not found"
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
