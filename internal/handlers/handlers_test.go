package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"allchat/internal/services"

	"github.com/gofiber/fiber/v2"
)

func newTestApp() *fiber.App {
	return fiber.New()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestLineWebhookAlwaysAcks(t *testing.T) {
	h := NewWebhookHandler(nil, nil, nil, nil, services.NewTurnLimiter(10, 3), nil, nil, nil)
	app := newTestApp()
	app.Post("/webhook/line/:tenantId", h.Line)

	cases := []string{
		`not json at all`,
		`{"events":[]}`,
		`{"events":[{"type":"follow"}]}`,
		`{"events":[{"type":"message","message":{"type":"sticker"}}]}`,
	}
	for _, body := range cases {
		resp := doJSON(t, app, http.MethodPost, "/webhook/line/t1", body)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("webhook must always return 200, got %d for body %q", resp.StatusCode, body)
		}
	}
}

func TestFacebookWebhookIgnoresEchoesAndEmptyEvents(t *testing.T) {
	h := NewWebhookHandler(nil, nil, nil, nil, services.NewTurnLimiter(10, 3), nil, nil, nil)
	app := newTestApp()
	app.Post("/webhook/facebook/:tenantId", h.Facebook)

	cases := []string{
		`{"object":"page","entry":[]}`,
		`{"object":"page","entry":[{"messaging":[{"message":{"text":"hi","is_echo":true},"sender":{"id":"u1"}}]}]}`,
		`{"object":"page","entry":[{"messaging":[{"message":{"text":""},"sender":{"id":"u1"}}]}]}`,
	}
	for _, body := range cases {
		resp := doJSON(t, app, http.MethodPost, "/webhook/facebook/t1", body)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("webhook must always return 200, got %d for body %q", resp.StatusCode, body)
		}
	}
}

func TestChatMessageValidation(t *testing.T) {
	h := NewChatHandler(nil, nil, services.NewTurnLimiter(10, 3))
	app := newTestApp()
	app.Post("/api/chat/:tenantId/message", h.Message)

	resp := doJSON(t, app, http.MethodPost, "/api/chat/t1/message", `{"message":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank message should be rejected, got %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/chat/t1/message", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body should be rejected, got %d", resp.StatusCode)
	}
}

func TestAssistantMessageValidation(t *testing.T) {
	h := NewAssistantHandler(nil)
	app := newTestApp()
	app.Post("/api/tenants/:tenantId/assistant", h.Message)

	resp := doJSON(t, app, http.MethodPost, "/api/tenants/t1/assistant", `{"message":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty assistant message should be rejected, got %d", resp.StatusCode)
	}
}

func TestInboxSendMessageValidation(t *testing.T) {
	h := NewInboxHandler(nil, nil, nil, nil)
	app := newTestApp()
	app.Post("/api/tenants/:tenantId/conversations/:userId/messages", h.SendMessage)

	resp := doJSON(t, app, http.MethodPost, "/api/tenants/t1/conversations/u1/messages", `{"message":"  "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank admin message should be rejected, got %d", resp.StatusCode)
	}
}
