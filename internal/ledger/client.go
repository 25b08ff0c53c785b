package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/watchearn/watchearn/internal/reward"
)

// Client talks to the ledger RPCs over HTTP. It implements the session
// coordinator's ledger interface; the bearer token identifies the user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a ledger client with a bounded request timeout so a
// hung call cannot strand a session in Submitting.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling ledger %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding ledger response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("ledger %s %s: %s", method, path, msg)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding ledger payload: %w", err)
		}
	}
	return nil
}

// DailyLimit fetches the caller's quota snapshot.
func (c *Client) DailyLimit(ctx context.Context) (reward.Limit, error) {
	var snap LimitSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/adviews/limit", nil, &snap); err != nil {
		return reward.Limit{}, err
	}
	return snap.Limit, nil
}

// ProcessCompletion submits a completion claim.
func (c *Client) ProcessCompletion(ctx context.Context, taskID, adID, provider string, verification json.RawMessage) (*ClaimResult, error) {
	req := CompleteRequest{
		TaskID:       taskID,
		AdID:         adID,
		Provider:     provider,
		Verification: verification,
	}
	var result ClaimResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/adviews/complete", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History fetches the caller's recent attempts.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/adviews/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
