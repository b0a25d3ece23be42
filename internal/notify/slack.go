package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrSlackDisabled is returned when no webhook URL is configured.
var ErrSlackDisabled = errors.New("slack delivery disabled")

// SlackMessage is an incoming-webhook payload.
type SlackMessage struct {
	Text string `json:"text"`
}

// SlackClient posts messages to a Slack incoming webhook.
type SlackClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackClient builds a client. An empty URL disables it.
func NewSlackClient(webhookURL string, httpClient *http.Client) *SlackClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SlackClient{webhookURL: webhookURL, httpClient: httpClient}
}

// Enabled reports whether a webhook is configured.
func (s *SlackClient) Enabled() bool {
	return s.webhookURL != ""
}

// Send posts msg to the webhook.
func (s *SlackClient) Send(ctx context.Context, msg SlackMessage) error {
	if !s.Enabled() {
		return ErrSlackDisabled
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
