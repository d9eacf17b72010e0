package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/dto"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/services"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/session"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users   *services.UserService
	cookies CookiePolicy
}

func NewUserHandler(users *services.UserService, cookies CookiePolicy) *UserHandler {
	return &UserHandler{users: users, cookies: cookies}
}

// Create logs in an existing user (200) or creates one (201). Either way
// the identity cookie is set.
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		if field, tag := fieldError(err); field == "email" && tag == "max" {
			return errorJSON(c, fiber.StatusBadRequest, "Email is too long")
		}
		return errorJSON(c, fiber.StatusBadRequest, "Email is required")
	}

	user, created, err := h.users.CreateOrLogin(c.UserContext(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailRequired):
			return errorJSON(c, fiber.StatusBadRequest, "Email is required")
		case errors.Is(err, session.ErrIdentityConflict), errors.Is(err, store.ErrDuplicateIdentity):
			slog.Warn("create user conflict", "email", req.Email, "error", err)
			return errorJSON(c, fiber.StatusBadRequest, "Email already exists")
		}
		slog.Error("create user failed", "email", req.Email, "request_id", requestID(c), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to create user")
	}

	h.cookies.SetIdentity(c, user.Email)
	if created {
		slog.Info("new user created", "email", user.Email)
		return c.Status(fiber.StatusCreated).JSON(user)
	}
	slog.Info("existing user logged in", "email", user.Email)
	return c.JSON(user)
}

// Me returns the user named by the identity cookie. It never creates one.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := h.users.Current(c.UserContext(), identityClaim(c))
	switch {
	case err == nil:
		return c.JSON(user)
	case errors.Is(err, session.ErrNoIdentity):
		return errorJSON(c, fiber.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, session.ErrUnknownIdentity):
		return errorJSON(c, fiber.StatusUnauthorized, "User not found")
	}
	slog.Error("get current user failed", "request_id", requestID(c), "error", err)
	return errorJSON(c, fiber.StatusInternalServerError, "Failed to get user information")
}

func (h *UserHandler) Logout(c *fiber.Ctx) error {
	h.cookies.ClearIdentity(c)
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}
