package handlers

import (
	"errors"
	"strings"

	"allchat/internal/models"
	"allchat/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ChatHandler serves the website chat widget: a synchronous request/response
// wrapper around the reply pipeline.
type ChatHandler struct {
	tenants *services.TenantService
	replies *services.ReplyService
	limiter *services.TurnLimiter
}

// NewChatHandler creates the chat widget handler.
func NewChatHandler(tenants *services.TenantService, replies *services.ReplyService, limiter *services.TurnLimiter) *ChatHandler {
	return &ChatHandler{tenants: tenants, replies: replies, limiter: limiter}
}

// Welcome returns the tenant's public widget settings.
// GET /api/chat/:tenantId/welcome
func (h *ChatHandler) Welcome(c *fiber.Ctx) error {
	cfg, err := h.tenants.Get(c.Context(), c.Params("tenantId"))
	if err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load tenant"})
	}

	return c.JSON(fiber.Map{
		"chatbotName":    cfg.ChatbotName,
		"welcomeMessage": cfg.WelcomeMessage,
	})
}

// Message processes one widget turn and returns the reply inline. A missing
// userId starts a new anonymous session; the client keeps the id for
// follow-up turns.
// POST /api/chat/:tenantId/message
func (h *ChatHandler) Message(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message is required"})
	}
	if req.UserID == "" {
		req.UserID = "web-" + uuid.NewString()
	}

	tenantID := c.Params("tenantId")
	if !h.limiter.Allow(tenantID, req.UserID) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": rateLimitedReply})
	}

	reply := h.replies.GenerateReply(c.Context(), services.ReplyRequest{
		TenantID:  tenantID,
		UserID:    req.UserID,
		UserInput: req.Message,
		Platform:  models.PlatformWeb,
	})

	return c.JSON(fiber.Map{
		"reply":  reply,
		"userId": req.UserID,
	})
}
