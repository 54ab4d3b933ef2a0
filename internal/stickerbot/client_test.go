package stickerbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stickerart/sticker-gallery-backend/internal/config"
)

func testClientConfig(baseURL string) config.StickerBotConfig {
	return config.StickerBotConfig{
		APIURL:         baseURL,
		ServiceToken:   "test-token",
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
	}
}

func TestSendMessage_Success(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"sent","chat_id":100,"message_id":7}`))
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	chatID := int64(100)
	resp, err := c.SendMessage(context.Background(), SendMessageRequest{
		UserID:                 55,
		ChatID:                 &chatID,
		Text:                   "hi there",
		ParseMode:              ParseModePlain,
		AuditMessageIDOverride: "must-not-serialize",
		RetryOfMessageID:       "must-not-serialize",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !resp.Sent() || resp.ChatID != 100 || resp.MessageID != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != SendPath {
		t.Errorf("path = %q, want %q", gotPath, SendPath)
	}
	if gotBody["text"] != "hi there" || gotBody["user_id"] != float64(55) {
		t.Errorf("body = %v", gotBody)
	}
	for _, k := range []string{"AuditMessageIDOverride", "RetryOfMessageID"} {
		if _, ok := gotBody[k]; ok {
			t.Errorf("audit bookkeeping field %q leaked onto the wire", k)
		}
	}
}

func TestSendMessage_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	resp, err := c.SendMessage(context.Background(), SendMessageRequest{UserID: 1, Text: "x"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp != nil {
		t.Fatalf("empty body must yield nil response, got %+v", resp)
	}
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	_, err := c.SendMessage(context.Background(), SendMessageRequest{UserID: 1, Text: "x"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Body != "upstream exploded" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestSendMessage_APIError_TruncatesBody(t *testing.T) {
	long := strings.Repeat("e", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	_, err := c.SendMessage(context.Background(), SendMessageRequest{UserID: 1, Text: "x"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if len(apiErr.Body) > maxBodySnippet+len("…") {
		t.Fatalf("body not truncated: %d bytes", len(apiErr.Body))
	}
	if !strings.HasSuffix(apiErr.Body, "…") {
		t.Fatalf("truncated body should be marked: %q", apiErr.Body[len(apiErr.Body)-8:])
	}
}

func TestSendMessage_TransportError(t *testing.T) {
	// Closed server: connection refused, no HTTP response at all.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(testClientConfig(url))
	_, err := c.SendMessage(context.Background(), SendMessageRequest{UserID: 1, Text: "x"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport failure must not be an *APIError: %v", err)
	}
}

func TestSendMessage_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() { close(block); srv.Close() }()

	c := NewClient(testClientConfig(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.SendMessage(ctx, SendMessageRequest{UserID: 1, Text: "x"})
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestTruncateBody(t *testing.T) {
	if got := TruncateBody("short"); got != "short" {
		t.Errorf("TruncateBody(short) = %q", got)
	}
	long := strings.Repeat("a", maxBodySnippet+1)
	got := TruncateBody(long)
	if len(got) != maxBodySnippet+len("…") || !strings.HasSuffix(got, "…") {
		t.Errorf("TruncateBody long = %d bytes", len(got))
	}
}
