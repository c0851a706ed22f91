package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	var verrs services.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: "Validation failed", Fields: verrs,
		})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: "Validation failed",
		})
	case errors.Is(err, services.ErrMissingIdentity):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrPermission), errors.Is(err, services.ErrIdentityMismatch):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Forbidden",
		})
	case errors.Is(err, services.ErrContentNotFound), errors.Is(err, services.ErrProfileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: "Content is no longer pending review",
		})
	case errors.Is(err, services.ErrUpload):
		slog.Error("upload failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "File upload failed",
		})
	default:
		slog.Error("request failed", "path", c.Path(), "request_id", c.Locals("requestid"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}
