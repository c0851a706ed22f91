package handlers

import (
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	contentService *services.ContentService
}

func NewAdminHandler(contentService *services.ContentService) *AdminHandler {
	return &AdminHandler{contentService: contentService}
}

// ListContent lists records, filtered by ?status= when given.
func (h *AdminHandler) ListContent(c *fiber.Ctx) error {
	records, err := h.contentService.ListByStatus(c.UserContext(), models.Status(c.Query("status")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ContentListResponse{Data: records, Count: len(records)})
}

func (h *AdminHandler) Review(c *fiber.Ctx) error {
	var req dto.ReviewContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	rec, err := h.contentService.Review(c.UserContext(), c.Params("id"), req.Input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}
