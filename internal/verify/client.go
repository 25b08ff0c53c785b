package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the verification endpoint over HTTP. Used by the headless
// watch session and by integration checks; the browser player talks to
// the same endpoint directly.
type Client struct {
	baseURL string
	retries int
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL: baseURL,
		retries: retries,
		http:    &http.Client{Timeout: timeout},
	}
}

// Verify submits a watched-ad receipt request. Transport errors and 5xx
// responses are retried a bounded number of times; 4xx responses are
// returned immediately since the request will not get better.
func (c *Client) Verify(ctx context.Context, req Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding verification request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		raw, retryable, err := c.post(ctx, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/verify/ad-view", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("building verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("calling verifier: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var raw json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, false, fmt.Errorf("decoding verification response: %w", err)
		}
		return raw, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("verifier returned %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("verifier rejected request with %d", resp.StatusCode)
	}
}
