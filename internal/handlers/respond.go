package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/dto"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/middleware"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func errorJSON(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badBody(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
}

// internalError logs and reports err, then answers with a generic 500.
func internalError(c *fiber.Ctx, message string, err error) error {
	slog.Error(message, "method", c.Method(), "path", c.Path(), "error", err)
	capture(c, err)
	return errorJSON(c, fiber.StatusInternalServerError, message)
}

func capture(c *fiber.Ctx, err error) {
	if err == nil {
		return
	}
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// ErrorHandler renders errors returned from handlers as dto.ErrorResponse.
// Details are only exposed for client errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		capture(c, err)
		message = "Internal server error"
	}

	return errorJSON(c, code, message)
}

func userID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := middleware.CurrentUserID(c)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return id, nil
}

func paramID(c *fiber.Ctx, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+what+" id")
	}
	return id, nil
}
