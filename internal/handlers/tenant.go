package handlers

import (
	"errors"
	"log"

	"allchat/internal/models"
	"allchat/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TenantHandler exposes tenant configuration to the dashboard.
type TenantHandler struct {
	tenants *services.TenantService
}

// NewTenantHandler creates the tenant handler.
func NewTenantHandler(tenants *services.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Get returns the tenant's configuration. Secrets are stripped by the
// models' json tags.
// GET /api/tenants/:tenantId
func (h *TenantHandler) Get(c *fiber.Ctx) error {
	cfg, err := h.tenants.Get(c.Context(), c.Params("tenantId"))
	if err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
		}
		log.Printf("❌ [TENANT] get failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load tenant"})
	}
	return c.JSON(cfg)
}

// Update applies a partial settings update.
// PATCH /api/tenants/:tenantId
func (h *TenantHandler) Update(c *fiber.Ctx) error {
	var req models.TenantUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tenantID := c.Params("tenantId")
	if err := h.tenants.Update(c.Context(), tenantID, &req); err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
		}
		log.Printf("❌ [TENANT] update failed for %s: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update tenant"})
	}

	return c.JSON(fiber.Map{"success": true})
}
