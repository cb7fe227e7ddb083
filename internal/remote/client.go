package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry-go"
	"github.com/sphinx-chat/sphinxd/internal/player"
	"go.uber.org/zap"
)

// Client talks to the account's Sphinx relay. Meta sync, seen marking and
// sats streaming are best-effort side effects: failures are retried a few
// times, then logged and swallowed — they never surface to the state
// machine (the only user-visible consequence is the side effect not having
// happened).
type Client struct {
	baseURL    string
	token      string
	http       *http.Client
	retryDelay time.Duration
	logger     *zap.Logger
}

// New creates a relay client.
func New(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		http:       &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
		logger:     logger,
	}
}

// SendMessage delivers an outgoing message and returns the relay-assigned
// message id. Unlike the best-effort calls, delivery failures are returned
// so the outbox can mark the entry failed.
func (c *Client) SendMessage(ctx context.Context, chatID int64, content string) (int64, error) {
	var result struct {
		Response struct {
			ID int64 `json:"id"`
		} `json:"response"`
	}
	err := c.call(ctx, http.MethodPost, "/messages", map[string]any{
		"chat_id": chatID,
		"text":    content,
	}, &result)
	if err != nil {
		return 0, err
	}
	return result.Response.ID, nil
}

// MarkSeen reports a chat's messages as seen. Best effort.
func (c *Client) MarkSeen(ctx context.Context, chatID int64) {
	c.bestEffort(ctx, "mark seen", http.MethodPost,
		fmt.Sprintf("/messages/%d/read", chatID), nil)
}

// UpdateChatMeta persists a per-conversation metadata blob (playback
// position, episode, speed) on the relay. Best effort.
func (c *Client) UpdateChatMeta(ctx context.Context, chatID int64, meta any) {
	blob, err := json.Marshal(meta)
	if err != nil {
		return
	}
	c.bestEffort(ctx, "update chat meta", http.MethodPut,
		fmt.Sprintf("/chats/%d", chatID), map[string]any{
			"meta": string(blob),
		})
}

// StreamSats streams micro-payments with a destination split list. Best
// effort.
func (c *Client) StreamSats(params player.StreamParams) error {
	c.bestEffort(context.Background(), "stream sats", http.MethodPost, "/stream", params)
	return nil
}

// bestEffort performs a relay call with bounded retries and swallows the
// final error.
func (c *Client) bestEffort(ctx context.Context, what, method, path string, body any) {
	err := retry.Do(
		func() error {
			return c.call(ctx, method, path, body, nil)
		},
		retry.Attempts(3),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil && c.logger != nil {
		c.logger.Warn("relay call failed", zap.String("call", what), zap.Error(err))
	}
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-User-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned HTTP %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
