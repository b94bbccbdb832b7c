// Package device talks to the marionette over its HTTP API and provides a
// simulator implementing the same API.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ivlev/marionette/internal/document"
)

// Client is the editor's playback collaborator. Calls are not retried.
type Client struct {
	baseURL string
	http    *http.Client
	polls   singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StartPlayback sends the animation to the device
func (c *Client) StartPlayback(ctx context.Context, doc *document.Document) error {
	return c.do(ctx, http.MethodPost, "/marionette/play", map[string]any{"animation": doc}, nil)
}

// StopPlayback pauses the device
func (c *Client) StopPlayback(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/marionette/pause", nil, nil)
}

// PollCurrentIndex returns the device's playhead. Concurrent polls share one request.
func (c *Client) PollCurrentIndex(ctx context.Context) (int, error) {
	v, err, _ := c.polls.Do("current_index", func() (any, error) {
		var out struct {
			CurrentIndex *int `json:"current_index"`
		}
		if err := c.do(ctx, http.MethodGet, "/marionette/current_index", nil, &out); err != nil {
			return 0, err
		}
		if out.CurrentIndex == nil {
			return 0, fmt.Errorf("current_index missing from response")
		}
		return *out.CurrentIndex, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// DeviceConfig returns the device configuration block
func (c *Client) DeviceConfig(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/marionette/config", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Enabled reports whether the device drives its outputs
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	err := c.do(ctx, http.MethodGet, "/marionette/enabled", nil, &out)
	return out.Enabled, err
}

func (c *Client) SetEnabled(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPost, "/marionette/enabled", map[string]bool{"enabled": enabled}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
