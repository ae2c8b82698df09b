package handlers

import (
	"log"

	"allchat/internal/models"
	"allchat/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler exposes the authenticated user's own profile.
type UserHandler struct {
	users   *services.UserService
	tenants *services.TenantService
}

// NewUserHandler creates the user handler.
func NewUserHandler(users *services.UserService, tenants *services.TenantService) *UserHandler {
	return &UserHandler{users: users, tenants: tenants}
}

// Me returns the current user's profile and tenant memberships.
// GET /api/users/me
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	memberships := []models.UserTenant{}
	for tenantID, role := range user.Tenants {
		entry := models.UserTenant{TenantID: tenantID, Role: role}
		if cfg, err := h.tenants.Get(c.Context(), tenantID); err == nil {
			entry.TenantName = cfg.TenantName
		} else {
			log.Printf("⚠️ [USER] tenant %s lookup failed for listing: %v", tenantID, err)
		}
		memberships = append(memberships, entry)
	}

	return c.JSON(fiber.Map{
		"user":    user,
		"tenants": memberships,
	})
}
