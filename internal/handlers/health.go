package handlers

import (
	"allchat/internal/database"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct {
	db *database.MongoDB
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(db *database.MongoDB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check answers the load balancer's health probe.
// GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	mongoStatus := "ok"
	if err := h.db.Ping(c.Context()); err != nil {
		status = "degraded"
		mongoStatus = err.Error()
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"mongo":  mongoStatus,
	})
}
