package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

// PingFunc checks the backing database.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	driver string
	ping   PingFunc
	hub    *store.Hub
}

func NewHealthHandler(driver string, ping PingFunc, hub *store.Hub) *HealthHandler {
	return &HealthHandler{driver: driver, ping: ping, hub: hub}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Store:     h.driver,
		Streams:   h.hub.Len(),
	})
}
