package handlers

import (
	"log"
	"strings"

	"allchat/internal/models"
	"allchat/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AssistantHandler exposes the dashboard's settings assistant.
type AssistantHandler struct {
	assistant *services.AssistantService
}

// NewAssistantHandler creates the assistant handler.
func NewAssistantHandler(assistant *services.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Message processes one assistant message from a tenant admin.
// POST /api/tenants/:tenantId/assistant
func (h *AssistantHandler) Message(c *fiber.Ctx) error {
	var req models.AssistantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message is required"})
	}

	adminID, _ := c.Locals("user_id").(string)
	reply, err := h.assistant.Handle(c.Context(), c.Params("tenantId"), adminID, req.Message)
	if err != nil {
		log.Printf("❌ [ASSISTANT] message failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Assistant is unavailable right now"})
	}

	return c.JSON(models.AssistantResponse{Reply: reply})
}
