package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// Client is a small JSON client for the scorebot API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Get performs a GET request and decodes a 200 body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	status, _, err := c.do(ctx, http.MethodGet, path, nil, out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, status)
	}
	return nil
}

// Post sends body as JSON and decodes any response body into out. It
// returns the status and the request ID echoed by the server.
func (c *Client) Post(ctx context.Context, path string, body, out any) (int, string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	id := uuid.NewString()
	req.Header.Set(headerRequestID, id)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, id, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if echoed := resp.Header.Get(headerRequestID); echoed != "" {
		id = echoed
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, id, fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return resp.StatusCode, id, nil
}
