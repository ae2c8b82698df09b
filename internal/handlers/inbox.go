package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"allchat/internal/models"
	"allchat/internal/platform"
	"allchat/internal/services"

	"github.com/gofiber/fiber/v2"
)

// InboxHandler gives tenant agents a view into their conversations and a
// way to answer end users directly.
type InboxHandler struct {
	tenants       *services.TenantService
	conversations *services.ConversationService
	line          *platform.LineClient
	facebook      *platform.FacebookClient
}

// NewInboxHandler creates the inbox handler.
func NewInboxHandler(
	tenants *services.TenantService,
	conversations *services.ConversationService,
	line *platform.LineClient,
	facebook *platform.FacebookClient,
) *InboxHandler {
	return &InboxHandler{
		tenants:       tenants,
		conversations: conversations,
		line:          line,
		facebook:      facebook,
	}
}

// List returns the tenant's conversations, newest activity first.
// GET /api/tenants/:tenantId/conversations
func (h *InboxHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)

	items, err := h.conversations.ListByTenant(c.Context(), c.Params("tenantId"), limit)
	if err != nil {
		log.Printf("❌ [INBOX] list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load conversations"})
	}
	return c.JSON(fiber.Map{"conversations": items})
}

// Get returns one conversation's full history.
// GET /api/tenants/:tenantId/conversations/:userId
func (h *InboxHandler) Get(c *fiber.Ctx) error {
	rec, err := h.conversations.Get(c.Context(), c.Params("tenantId"), c.Params("userId"))
	if err != nil {
		log.Printf("❌ [INBOX] get failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load conversation"})
	}
	return c.JSON(rec)
}

// MarkRead records that an agent has viewed the conversation.
// POST /api/tenants/:tenantId/conversations/:userId/read
func (h *InboxHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.conversations.MarkAsRead(c.Context(), c.Params("tenantId"), c.Params("userId")); err != nil {
		log.Printf("❌ [INBOX] mark read failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as read"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// SendMessage delivers a human-agent reply to the end user on their platform
// and records it in the history.
// POST /api/tenants/:tenantId/conversations/:userId/messages
func (h *InboxHandler) SendMessage(c *fiber.Ctx) error {
	var req models.AdminMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message is required"})
	}

	tenantID := c.Params("tenantId")
	userID := c.Params("userId")

	rec, err := h.conversations.Get(c.Context(), tenantID, userID)
	if err != nil {
		log.Printf("❌ [INBOX] conversation load failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load conversation"})
	}

	if err := h.deliver(c.Context(), tenantID, userID, rec.Platform, req.Message); err != nil {
		log.Printf("❌ [INBOX] delivery failed for %s/%s: %v", tenantID, userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to deliver message"})
	}

	adminID, _ := c.Locals("user_id").(string)
	entry := models.Message{
		Role:       models.RoleModel,
		Parts:      []models.MessagePart{{Text: req.Message}},
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		SenderType: "admin",
		SenderID:   adminID,
	}
	if err := h.conversations.AppendAdminMessage(c.Context(), tenantID, userID, entry); err != nil {
		log.Printf("⚠️ [INBOX] admin message record failed: %v", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *InboxHandler) deliver(ctx context.Context, tenantID, userID, platformName, text string) error {
	cfg, err := h.tenants.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	switch platformName {
	case models.PlatformLine:
		return h.line.Push(ctx, cfg.LineAccessToken, userID, text)
	case models.PlatformFacebook:
		return h.facebook.Send(ctx, cfg.FacebookPageToken, userID, text)
	default:
		// Web widget users poll the history; recording the message is enough.
		return nil
	}
}
