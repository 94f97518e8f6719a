// Package client talks to a running guard server over its HTTP hook API.
// Used by the CLI and by host runtimes embedding enforcement remotely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rkalmar/mandate/internal/model"
)

// HookRequest is the wire shape accepted by the hook endpoints.
type HookRequest struct {
	SessionID  string           `json:"session_id"`
	RetryCount int              `json:"retry_count"`
	Messages   []model.Message  `json:"messages"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
}

// HookResponse is the guard server's decision.
type HookResponse struct {
	SessionID string          `json:"session_id"`
	Action    string          `json:"action"` // continue | abort
	Reason    string          `json:"reason,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
	Messages  []model.Message `json:"messages,omitempty"`
}

// Aborted reports whether the server blocked the interaction.
func (r *HookResponse) Aborted() bool { return r.Action == "abort" }

// Health is the /healthz payload.
type Health struct {
	Status string `json:"status"`
	Policy string `json:"policy"`
}

// Client is an HTTP client for one guard server.
// Fail-closed: if the server cannot be reached, hook calls return an
// abort decision rather than an error, so a crashed guard never lets
// an interaction through unchecked.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the given base URL, e.g. "http://127.0.0.1:8787".
func New(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Input runs the pre-generation hook.
func (c *Client) Input(ctx context.Context, req HookRequest) (*HookResponse, error) {
	return c.hook(ctx, "input", req)
}

// Step runs the tool-call hook.
func (c *Client) Step(ctx context.Context, req HookRequest) (*HookResponse, error) {
	return c.hook(ctx, "step", req)
}

// Result runs the post-generation hook.
func (c *Client) Result(ctx context.Context, req HookRequest) (*HookResponse, error) {
	return c.hook(ctx, "result", req)
}

func (c *Client) hook(ctx context.Context, hook string, req HookRequest) (*HookResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode hook request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/v1/hooks/"+hook, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build hook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Fail-closed: unreachable server blocks the interaction.
		return &HookResponse{
			SessionID: req.SessionID,
			Action:    "abort",
			Reason:    fmt.Sprintf("guard server unreachable: %v", err),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hook %s: server returned %s", hook, resp.Status)
	}

	var out HookResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode hook response: %w", err)
	}
	return &out, nil
}

// Healthz fetches the server's health and active policy name.
func (c *Client) Healthz(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("guard server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("healthz: server returned %s", resp.Status)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &h, nil
}
