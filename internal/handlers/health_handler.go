package handlers

import (
	"log/slog"
	"time"

	"github.com/SergeSyntax/mock-server/internal/dto"
	"github.com/SergeSyntax/mock-server/internal/store"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	store store.Store
}

func NewHealthHandler(s store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	storeStatus := "ok"
	if err := h.store.Ping(c.UserContext()); err != nil {
		slog.Error("store health check failed", "error", err)
		storeStatus = "unhealthy"
	}

	return c.JSON(dto.HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Store:       storeStatus,
		Collections: h.store.Collections(),
	})
}
