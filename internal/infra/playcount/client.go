// Package playcount provides the client that reports completed listens to
// the catalog service. Reports are at-most-once per item per session and
// fire-and-forget: a failed report is logged and never retried.
package playcount

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Reporter is the play-count reporting contract.
type Reporter interface {
	Report(ctx context.Context, itemID string) error
}

// Config represents play-count client configuration.
type Config struct {
	Endpoint string
}

// Client reports play counts over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new play-count client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("play-count endpoint is required")
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type reportRequest struct {
	ID string `json:"id"`
}

// Report increments the play count for itemID.
func (c *Client) Report(ctx context.Context, itemID string) error {
	if itemID == "" {
		return errors.New("item ID is required")
	}

	body, err := json.Marshal(reportRequest{ID: itemID})
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("play-count endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Noop discards reports. Used when no endpoint is configured.
type Noop struct{}

func (Noop) Report(context.Context, string) error { return nil }
