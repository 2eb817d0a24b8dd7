package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a minimal client for the transcription bot gateway
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a bot gateway client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the gateway is configured
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// ScheduleRequest is payload for /v1/bots
type ScheduleRequest struct {
	MeetingURL string          `json:"meeting_url"`
	JoinAt     time.Time       `json:"join_at"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// ScheduleResponse is minimal response
type ScheduleResponse struct {
	BotID  string `json:"bot_id"`
	Status string `json:"status"`
}

// ScheduleBot asks the gateway to join a meeting at the given time.
// Returns the gateway's bot id on success.
func (c *Client) ScheduleBot(ctx context.Context, meetingURL string, joinAt time.Time, config []byte) (string, error) {
	payload := ScheduleRequest{
		MeetingURL: meetingURL,
		JoinAt:     joinAt,
	}
	if len(config) > 0 {
		payload.Config = json.RawMessage(config)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/bots", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("bot gateway returned status %d", resp.StatusCode)
	}

	var sr ScheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", err
	}
	return sr.BotID, nil
}

// CancelBot asks the gateway to withdraw a scheduled bot
func (c *Client) CancelBot(ctx context.Context, botID string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/v1/bots/"+botID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("bot gateway returned status %d", resp.StatusCode)
	}
	return nil
}
