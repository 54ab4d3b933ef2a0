// Package stickerbot implements the outbound client for the external
// StickerBot recipient-messaging API (POST /api/messages/send). The client
// performs exactly one network call per invocation and reports a typed
// outcome; retry policy and failure classification live one layer up, in
// services.MessageService.
//
// Outcomes of SendMessage:
//   - (*SendMessageResponse, nil) — HTTP 2xx with a decodable body.
//   - (nil, nil)                  — HTTP 2xx with an empty body (the caller
//     classifies this as EMPTY_RESPONSE).
//   - (nil, *APIError)            — non-2xx HTTP response; carries the status
//     code and a truncated response body.
//   - (nil, err)                  — transport-level failure (DNS, connect,
//     timeout); no HTTP response was received.
package stickerbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/stickerart/sticker-gallery-backend/internal/config"
)

// SendPath is the StickerBot endpoint for delivering a message to a user.
const SendPath = "/api/messages/send"

// maxBodySnippet caps how much of a response body is retained in errors and
// audit payloads.
const maxBodySnippet = 200

// APIError is a non-2xx response from the StickerBot API. The remote system
// answered, so the HTTP status is available for retry classification.
type APIError struct {
	StatusCode int
	Body       string // truncated response body
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stickerbot api: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the StickerBot API over HTTP with Bearer authentication.
// The zero value is not usable; construct with NewClient.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a Client from configuration. Connect and read timeouts are
// enforced at the transport layer so a stuck attempt cannot block a retry
// loop indefinitely.
func NewClient(cfg config.StickerBotConfig) *Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &Client{
		baseURL: cfg.APIURL,
		token:   cfg.ServiceToken,
		http: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.ConnectTimeout,
				ResponseHeaderTimeout: cfg.ReadTimeout,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// SendMessage posts one message to the StickerBot API. See the package
// documentation for the outcome contract.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SendPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       TruncateBody(string(raw)),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var out SendMessageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// A 2xx with an undecodable body is indistinguishable from an empty
		// one for the caller's purposes.
		return nil, nil
	}
	return &out, nil
}

// TruncateBody clamps a response body snippet for audit payloads and error
// messages. Bodies longer than maxBodySnippet are cut and marked.
func TruncateBody(s string) string {
	if len(s) <= maxBodySnippet {
		return s
	}
	return s[:maxBodySnippet] + "…"
}
