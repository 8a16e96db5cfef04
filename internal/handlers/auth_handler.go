package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/dto"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return errorJSON(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrWeakRegistration):
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		return internalError(c, "Failed to register", err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return errorJSON(c, fiber.StatusUnauthorized, err.Error())
		}
		return internalError(c, "Internal server error", err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return errorJSON(c, fiber.StatusUnauthorized, err.Error())
		}
		return internalError(c, "Internal server error", err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.Logout(&req); err != nil {
		return internalError(c, "Failed to logout", err)
	}

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.DeleteAccount(c.UserContext(), uid, req.Password); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return errorJSON(c, fiber.StatusUnauthorized, "Incorrect password. Please try again.")
		case errors.Is(err, services.ErrUserNotFound):
			return errorJSON(c, fiber.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrPasswordRequired):
			return errorJSON(c, fiber.StatusBadRequest, "Password is required")
		}
		return internalError(c, "Failed to delete account", err)
	}

	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
