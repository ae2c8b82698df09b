package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

const facebookAPIBase = "https://graph.facebook.com/v19.0"

// FacebookClient talks to the Messenger Send API.
type FacebookClient struct {
	http *http.Client
	log  *logrus.Entry
}

// NewFacebookClient creates a Messenger API client.
func NewFacebookClient() *FacebookClient {
	return &FacebookClient{
		http: newHTTPClient(),
		log:  newLogger("facebook"),
	}
}

// Send delivers a text message to a PSID via the Send API.
func (c *FacebookClient) Send(ctx context.Context, pageToken, recipientID, text string) error {
	body := map[string]any{
		"recipient":      map[string]string{"id": recipientID},
		"message":        map[string]string{"text": text},
		"messaging_type": "RESPONSE",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := facebookAPIBase + "/me/messages?access_token=" + url.QueryEscape(pageToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("facebook send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.WithField("status", resp.StatusCode).Warnf("facebook send rejected: %s", string(b))
		return fmt.Errorf("facebook send returned %d", resp.StatusCode)
	}
	return nil
}

// GetProfile fetches the user's name and profile picture. Best-effort.
func (c *FacebookClient) GetProfile(ctx context.Context, pageToken, psid string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=name,profile_pic&access_token=%s",
		facebookAPIBase, url.PathEscape(psid), url.QueryEscape(pageToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("facebook profile returned %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Name       string `json:"name"`
		ProfilePic string `json:"profile_pic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode facebook profile: %w", err)
	}
	return &Profile{DisplayName: out.Name, PictureURL: out.ProfilePic}, nil
}
