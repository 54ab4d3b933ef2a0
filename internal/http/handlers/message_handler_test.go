package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/services"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// ---------- test plumbing ----------

type stubSender struct {
	got  *stickerbot.SendMessageRequest
	resp *stickerbot.SendMessageResponse
	err  error
}

func (s *stubSender) Send(ctx context.Context, req stickerbot.SendMessageRequest) (*stickerbot.SendMessageResponse, error) {
	s.got = &req
	return s.resp, s.err
}

type stubRetry struct {
	init *services.RetryInitiation
	err  error
}

func (s *stubRetry) InitiateRetry(ctx context.Context, sourceMessageID string) (*services.RetryInitiation, error) {
	return s.init, s.err
}

type stubAudit struct {
	page    *services.SessionPage
	session *domain.MessageAuditSession
	events  []domain.MessageAuditEvent
	err     error

	gotQuery services.SessionQuery
}

func (s *stubAudit) FindSessions(ctx context.Context, q services.SessionQuery) (*services.SessionPage, error) {
	s.gotQuery = q
	return s.page, s.err
}

func (s *stubAudit) GetSession(ctx context.Context, messageID string) (*domain.MessageAuditSession, error) {
	return s.session, s.err
}

func (s *stubAudit) GetEvents(ctx context.Context, messageID string) ([]domain.MessageAuditEvent, error) {
	return s.events, s.err
}

func newHandlerRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/messages/send", h.SendMessage)
	r.GET("/admin/message-audit/sessions", h.ListAuditSessions)
	r.GET("/admin/message-audit/sessions/:messageId", h.GetAuditSession)
	r.GET("/admin/message-audit/sessions/:messageId/events", h.GetAuditSessionEvents)
	r.POST("/admin/message-audit/sessions/:messageId/retry", h.RetryAuditSession)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------- SendMessage ----------

func TestSendMessageSuccess(t *testing.T) {
	sender := &stubSender{resp: &stickerbot.SendMessageResponse{
		Status: stickerbot.StatusSent, ChatID: 42, MessageID: 900,
	}}
	r := newHandlerRouter(New(sender, &stubRetry{}, &stubAudit{}))

	w := postJSON(r, "/messages/send", `{"user_id":42,"text":"hello","parse_mode":"markdown"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp SendMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response json: %v", err)
	}
	if resp.Status != "sent" || resp.ChatID != 42 || resp.TelegramMessageID != 900 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, err := uuid.Parse(resp.MessageID); err != nil {
		t.Fatalf("message_id is not a UUID: %q", resp.MessageID)
	}

	if sender.got.AuditMessageIDOverride != resp.MessageID {
		t.Fatal("audit key in request and response differ")
	}
	if sender.got.ParseMode != stickerbot.ParseModeMarkdown {
		t.Fatalf("parse mode = %q", sender.got.ParseMode)
	}
}

func TestSendMessageDefaultsParseMode(t *testing.T) {
	sender := &stubSender{resp: &stickerbot.SendMessageResponse{Status: stickerbot.StatusSent}}
	r := newHandlerRouter(New(sender, &stubRetry{}, &stubAudit{}))

	if w := postJSON(r, "/messages/send", `{"user_id":1,"text":"hi"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if sender.got.ParseMode != stickerbot.ParseModePlain {
		t.Fatalf("parse mode = %q, want plain", sender.got.ParseMode)
	}
}

func TestSendMessageValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing user", `{"text":"hi"}`},
		{"missing text", `{"user_id":1}`},
		{"blank text", `{"user_id":1,"text":"   "}`},
		{"bad parse mode", `{"user_id":1,"text":"hi","parse_mode":"mdx"}`},
		{"not json", `user_id=1`},
		{"text too long", `{"user_id":1,"text":"` + strings.Repeat("a", 5000) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &stubSender{}
			r := newHandlerRouter(New(sender, &stubRetry{}, &stubAudit{}))
			w := postJSON(r, "/messages/send", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", w.Code, w.Body.String())
			}
			if sender.got != nil {
				t.Fatal("sender must not be called on invalid input")
			}
		})
	}
}

func TestSendMessageDeliveryFailure(t *testing.T) {
	sender := &stubSender{err: &services.DeliveryError{Code: services.ErrorCodeHTTP5xx, Message: "bad gateway"}}
	r := newHandlerRouter(New(sender, &stubRetry{}, &stubAudit{}))

	w := postJSON(r, "/messages/send", `{"user_id":1,"text":"hi"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	var resp SendFailureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad failure json: %v", err)
	}
	if resp.Code != ErrCodeSendFailed || resp.ErrorCode != services.ErrorCodeHTTP5xx {
		t.Fatalf("unexpected failure body %+v", resp)
	}
	if _, err := uuid.Parse(resp.MessageID); err != nil {
		t.Fatal("failure response must carry the audit session id")
	}
}

func TestSendMessageConfigFailureIs500(t *testing.T) {
	sender := &stubSender{err: &services.DeliveryError{Code: services.ErrorCodeConfig, Message: "no url"}}
	r := newHandlerRouter(New(sender, &stubRetry{}, &stubAudit{}))

	if w := postJSON(r, "/messages/send", `{"user_id":1,"text":"hi"}`); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestNormalizeParseMode(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
	}{
		{"", "plain", true},
		{"plain", "plain", true},
		{"Markdown", "markdown", true},
		{" HTML ", "html", true},
		{"mdx", "", false},
	}
	for _, tc := range cases {
		got, valid := normalizeParseMode(tc.in)
		if got != tc.want || valid != tc.valid {
			t.Errorf("normalizeParseMode(%q) = %q,%v; want %q,%v", tc.in, got, valid, tc.want, tc.valid)
		}
	}
}
