package learning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/spec-kit/voc-service/internal/config"
)

const learnPath = "/api/v1/learn"

type learnRequest struct {
	VocID      string `json:"voc_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Resolution string `json:"resolution"`
}

// Client submits resolved tickets to the progressive learning service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client with the configured timeout.
func NewClient(cfg config.LearningConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

// LearnFromResolved posts the resolved ticket and its resolution note.
func (c *Client) LearnFromResolved(ctx context.Context, ticketID int64, title, content, resolutionNote string) error {
	body, err := json.Marshal(learnRequest{
		VocID:      strconv.FormatInt(ticketID, 10),
		Title:      title,
		Content:    content,
		Resolution: resolutionNote,
	})
	if err != nil {
		return fmt.Errorf("encode learn request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+learnPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build learn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post learn request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("learning service returned %d", resp.StatusCode)
	}
	return nil
}
