package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/database"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/dto"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, dbStatus := "ok", "ok"
	if err := database.Ping(ctx, h.db); err != nil {
		status, dbStatus = "degraded", "unhealthy: "+err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	})
}
