package handlers

import (
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Provision creates the profile on first sign-in: 201 when created, 200 when
// it already existed.
func (h *UserHandler) Provision(c *fiber.Ctx) error {
	var req dto.ProvisionUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	profile, created, err := h.userService.Provision(c.UserContext(), session.Optional(c), services.ProvisionInput{
		UID:         req.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.ProvisionUserResponse{Created: created, User: profile})
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	profile, err := h.userService.GetProfile(c.UserContext(), sess)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

func (h *UserHandler) FollowTopics(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	var req dto.FollowTopicsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	profile, err := h.userService.FollowTopics(c.UserContext(), sess, req.Topics)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}
