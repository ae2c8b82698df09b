package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const lineAPIBase = "https://api.line.me/v2/bot"

// LineClient talks to the LINE Messaging API.
type LineClient struct {
	http *http.Client
	log  *logrus.Entry
}

// NewLineClient creates a LINE API client.
func NewLineClient() *LineClient {
	return &LineClient{
		http: newHTTPClient(),
		log:  newLogger("line"),
	}
}

// Reply answers a webhook event using its reply token. Reply tokens are
// single-use and expire quickly, so a failed reply is retried as a push.
func (c *LineClient) Reply(ctx context.Context, accessToken, replyToken, text string) error {
	body := map[string]any{
		"replyToken": replyToken,
		"messages":   []map[string]string{{"type": "text", "text": text}},
	}
	return c.post(ctx, accessToken, "/message/reply", body)
}

// Push sends a message outside the reply-token window.
func (c *LineClient) Push(ctx context.Context, accessToken, userID, text string) error {
	body := map[string]any{
		"to":       userID,
		"messages": []map[string]string{{"type": "text", "text": text}},
	}
	return c.post(ctx, accessToken, "/message/push", body)
}

// GetProfile fetches the user's display name and picture. Best-effort: the
// bot works fine without a profile.
func (c *LineClient) GetProfile(ctx context.Context, accessToken, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lineAPIBase+"/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("line profile returned %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		DisplayName string `json:"displayName"`
		PictureURL  string `json:"pictureUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode line profile: %w", err)
	}
	return &Profile{DisplayName: out.DisplayName, PictureURL: out.PictureURL}, nil
}

func (c *LineClient) post(ctx context.Context, accessToken, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lineAPIBase+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("line request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.WithField("status", resp.StatusCode).Warnf("line %s rejected: %s", path, string(b))
		return fmt.Errorf("line %s returned %d", path, resp.StatusCode)
	}
	return nil
}
