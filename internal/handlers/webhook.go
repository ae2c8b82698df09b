package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"allchat/internal/models"
	"allchat/internal/platform"
	"allchat/internal/services"

	"github.com/gofiber/fiber/v2"
)

const rateLimitedReply = "You're sending messages a bit fast. Please wait a moment and try again."

// webhookTurnTimeout bounds one end-user turn processed in the background.
const webhookTurnTimeout = 2 * time.Minute

// WebhookHandler receives LINE and Facebook Messenger events, runs each
// text message through the reply pipeline, and sends the answer back on the
// originating platform. Webhooks always get a 200 so the platforms don't
// retry; processing happens in the background.
type WebhookHandler struct {
	tenants       *services.TenantService
	conversations *services.ConversationService
	replies       *services.ReplyService
	dedup         *services.DedupService
	limiter       *services.TurnLimiter
	metrics       *services.Metrics
	line          *platform.LineClient
	facebook      *platform.FacebookClient
}

// NewWebhookHandler creates the webhook handler. dedup and metrics may be nil.
func NewWebhookHandler(
	tenants *services.TenantService,
	conversations *services.ConversationService,
	replies *services.ReplyService,
	dedup *services.DedupService,
	limiter *services.TurnLimiter,
	metrics *services.Metrics,
	line *platform.LineClient,
	facebook *platform.FacebookClient,
) *WebhookHandler {
	return &WebhookHandler{
		tenants:       tenants,
		conversations: conversations,
		replies:       replies,
		dedup:         dedup,
		limiter:       limiter,
		metrics:       metrics,
		line:          line,
		facebook:      facebook,
	}
}

func (h *WebhookHandler) countEvent(platformName, outcome string) {
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(platformName, outcome).Inc()
	}
}

// Line receives LINE webhook events for one tenant.
// POST /webhook/line/:tenantId
func (h *WebhookHandler) Line(c *fiber.Ctx) error {
	tenantID := c.Params("tenantId")

	var body models.LineWebhookBody
	if err := c.BodyParser(&body); err != nil {
		log.Printf("⚠️ [WEBHOOK] line body parse failed for %s: %v", tenantID, err)
		return c.SendStatus(fiber.StatusOK)
	}

	for _, event := range body.Events {
		if event.Type != "message" || event.Message == nil || event.Message.Type != "text" {
			h.countEvent(models.PlatformLine, "ignored")
			continue
		}
		if event.Source == nil || event.Source.UserID == "" {
			h.countEvent(models.PlatformLine, "ignored")
			continue
		}
		if !h.dedup.FirstSeen(c.Context(), models.PlatformLine, event.WebhookEventID) {
			h.countEvent(models.PlatformLine, "duplicate")
			continue
		}

		h.countEvent(models.PlatformLine, "accepted")
		go h.processLineEvent(tenantID, event)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) processLineEvent(tenantID string, event models.LineEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTurnTimeout)
	defer cancel()

	userID := event.Source.UserID

	if !h.limiter.Allow(tenantID, userID) {
		h.countEvent(models.PlatformLine, "rate_limited")
		h.sendLine(ctx, tenantID, event.ReplyToken, userID, rateLimitedReply)
		return
	}

	req := services.ReplyRequest{
		TenantID:  tenantID,
		UserID:    userID,
		UserInput: event.Message.Text,
		Platform:  models.PlatformLine,
	}
	if event.Timestamp > 0 {
		req.LastMessageTime = time.UnixMilli(event.Timestamp).UTC().Format(time.RFC3339)
	}

	// Profile fetch is best-effort decoration for the inbox.
	if cfg, err := h.tenants.Get(ctx, tenantID); err == nil && cfg.LineAccessToken != "" {
		if profile, err := h.line.GetProfile(ctx, cfg.LineAccessToken, userID); err == nil {
			req.DisplayName = profile.DisplayName
			if perr := h.conversations.MergeProfile(ctx, tenantID, userID, profile.DisplayName, profile.PictureURL, models.PlatformLine); perr != nil {
				log.Printf("⚠️ [WEBHOOK] line profile merge failed: %v", perr)
			}
		}
	}

	reply := h.replies.GenerateReply(ctx, req)
	h.sendLine(ctx, tenantID, event.ReplyToken, userID, reply)
}

// sendLine replies with the single-use reply token, falling back to a push
// when the token is already spent or expired.
func (h *WebhookHandler) sendLine(ctx context.Context, tenantID, replyToken, userID, text string) {
	cfg, err := h.tenants.Get(ctx, tenantID)
	if err != nil || cfg.LineAccessToken == "" {
		log.Printf("❌ [WEBHOOK] no line token for tenant %s, dropping reply", tenantID)
		return
	}

	if replyToken != "" {
		if err := h.line.Reply(ctx, cfg.LineAccessToken, replyToken, text); err == nil {
			return
		}
	}
	if err := h.line.Push(ctx, cfg.LineAccessToken, userID, text); err != nil {
		log.Printf("❌ [WEBHOOK] line delivery failed for %s/%s: %v", tenantID, userID, err)
	}
}

// FacebookVerify answers Facebook's webhook subscription challenge.
// GET /webhook/facebook/:tenantId
func (h *WebhookHandler) FacebookVerify(c *fiber.Ctx) error {
	tenantID := c.Params("tenantId")

	cfg, err := h.tenants.Get(c.Context(), tenantID)
	if err != nil {
		if !errors.Is(err, services.ErrTenantNotFound) {
			log.Printf("❌ [WEBHOOK] facebook verify lookup failed: %v", err)
		}
		return c.SendStatus(fiber.StatusForbidden)
	}

	if c.Query("hub.mode") == "subscribe" && c.Query("hub.verify_token") == cfg.FacebookVerifyToken && cfg.FacebookVerifyToken != "" {
		return c.SendString(c.Query("hub.challenge"))
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// Facebook receives Messenger webhook events for one tenant.
// POST /webhook/facebook/:tenantId
func (h *WebhookHandler) Facebook(c *fiber.Ctx) error {
	tenantID := c.Params("tenantId")

	var body models.FacebookWebhookBody
	if err := c.BodyParser(&body); err != nil {
		log.Printf("⚠️ [WEBHOOK] facebook body parse failed for %s: %v", tenantID, err)
		return c.SendStatus(fiber.StatusOK)
	}

	for _, entry := range body.Entry {
		for _, messaging := range entry.Messaging {
			if messaging.Message == nil || messaging.Message.Text == "" || messaging.Message.IsEcho {
				h.countEvent(models.PlatformFacebook, "ignored")
				continue
			}
			if messaging.Sender == nil || messaging.Sender.ID == "" {
				h.countEvent(models.PlatformFacebook, "ignored")
				continue
			}
			if !h.dedup.FirstSeen(c.Context(), models.PlatformFacebook, messaging.Message.MID) {
				h.countEvent(models.PlatformFacebook, "duplicate")
				continue
			}

			h.countEvent(models.PlatformFacebook, "accepted")
			go h.processFacebookEvent(tenantID, messaging)
		}
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) processFacebookEvent(tenantID string, messaging models.FacebookMessaging) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTurnTimeout)
	defer cancel()

	userID := messaging.Sender.ID

	if !h.limiter.Allow(tenantID, userID) {
		h.countEvent(models.PlatformFacebook, "rate_limited")
		h.sendFacebook(ctx, tenantID, userID, rateLimitedReply)
		return
	}

	req := services.ReplyRequest{
		TenantID:  tenantID,
		UserID:    userID,
		UserInput: messaging.Message.Text,
		Platform:  models.PlatformFacebook,
	}
	if messaging.Timestamp > 0 {
		req.LastMessageTime = time.UnixMilli(messaging.Timestamp).UTC().Format(time.RFC3339)
	}

	if cfg, err := h.tenants.Get(ctx, tenantID); err == nil && cfg.FacebookPageToken != "" {
		if profile, err := h.facebook.GetProfile(ctx, cfg.FacebookPageToken, userID); err == nil {
			req.DisplayName = profile.DisplayName
			if perr := h.conversations.MergeProfile(ctx, tenantID, userID, profile.DisplayName, profile.PictureURL, models.PlatformFacebook); perr != nil {
				log.Printf("⚠️ [WEBHOOK] facebook profile merge failed: %v", perr)
			}
		}
	}

	reply := h.replies.GenerateReply(ctx, req)
	h.sendFacebook(ctx, tenantID, userID, reply)
}

func (h *WebhookHandler) sendFacebook(ctx context.Context, tenantID, userID, text string) {
	cfg, err := h.tenants.Get(ctx, tenantID)
	if err != nil || cfg.FacebookPageToken == "" {
		log.Printf("❌ [WEBHOOK] no facebook token for tenant %s, dropping reply", tenantID)
		return
	}
	if err := h.facebook.Send(ctx, cfg.FacebookPageToken, userID, text); err != nil {
		log.Printf("❌ [WEBHOOK] facebook delivery failed for %s/%s: %v", tenantID, userID, err)
	}
}
