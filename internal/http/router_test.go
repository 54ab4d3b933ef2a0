package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/config"
	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/repo"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// okClient confirms every delivery immediately.
type okClient struct{}

func (okClient) SendMessage(ctx context.Context, req stickerbot.SendMessageRequest) (*stickerbot.SendMessageResponse, error) {
	return &stickerbot.SendMessageResponse{Status: stickerbot.StatusSent, ChatID: req.UserID, MessageID: 1}, nil
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		AdminToken:  "admin-t0k3n",
		RateRPS:     1000,
		RateBurst:   1000,
		StickerBot: config.StickerBotConfig{
			APIURL:       "http://bot.local",
			ServiceToken: "svc",
			Retry: config.RetryConfig{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				Multiplier:   2,
			},
		},
		Audit: config.AuditConfig{Retention: 90 * 24 * time.Hour},
		OTEL:  config.OTELConfig{ServiceName: "sticker-gallery-backend"},
	}
}

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	r := gin.New()
	RegisterRoutes(r, db, okClient{}, testConfig())
	return r, db
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
}

func TestNoRouteAndNoMethodEnvelopes(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Fatalf("no route: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no method: %d", w.Code)
	}
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/message-audit/sessions", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/message-audit/sessions", nil)
	req.Header.Set("Authorization", "Bearer admin-t0k3n")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status with token = %d: %s", w.Code, w.Body.String())
	}
}

func TestSendEndpointWritesAuditTrail(t *testing.T) {
	r, db := newRouter(t)

	body := bytes.NewBufferString(`{"user_id":77,"text":"pack published"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}

	session, err := repo.GetSessionByMessageID(context.Background(), db, resp.MessageID)
	if err != nil {
		t.Fatalf("audit session missing: %v", err)
	}
	if session.FinalStatus == nil || *session.FinalStatus != domain.FinalStatusSent {
		t.Fatalf("final status = %v, want SENT", session.FinalStatus)
	}

	events, err := repo.ListEventsByMessageID(context.Background(), db, resp.MessageID)
	if err != nil || len(events) < 3 {
		t.Fatalf("expected full event trail, got %d (%v)", len(events), err)
	}
}

func TestAuditRepoShimProxies(t *testing.T) {
	_, db := newRouter(t)
	ctx := context.Background()
	shim := auditRepoShim{}

	session := &domain.MessageAuditSession{
		MessageID: "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee",
		UserID:    5,
		StartedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	if err := shim.CreateSession(ctx, db, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := shim.GetSessionByMessageID(ctx, db, session.MessageID)
	if err != nil || got.UserID != 5 {
		t.Fatalf("GetSessionByMessageID: %+v %v", got, err)
	}

	failed := domain.FinalStatusFailed
	got.FinalStatus = &failed
	if err := shim.UpdateSession(ctx, db, got); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if err := shim.CreateEvent(ctx, db, &domain.MessageAuditEvent{
		SessionID: got.ID, MessageID: got.MessageID,
		Stage: domain.StageFailed, EventStatus: domain.EventFailed,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	count, err := shim.CountSessions(ctx, db, repo.SessionFilter{})
	if err != nil || count != 1 {
		t.Fatalf("CountSessions: %d %v", count, err)
	}
	page, err := shim.ListSessionsPage(ctx, db, repo.SessionFilter{}, 0, 10)
	if err != nil || len(page) != 1 {
		t.Fatalf("ListSessionsPage: %d %v", len(page), err)
	}
	events, err := shim.ListEventsByMessageID(ctx, db, got.MessageID)
	if err != nil || len(events) != 1 {
		t.Fatalf("ListEventsByMessageID: %d %v", len(events), err)
	}
	if _, err := shim.FindActiveOrSuccessfulRetryBySource(ctx, db, got.MessageID); err != gorm.ErrRecordNotFound {
		t.Fatalf("FindActiveOrSuccessfulRetryBySource: %v", err)
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(8))
	r.POST("/x", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"k":"0123456789abcdef"}`))
	r.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		t.Fatal("oversized body accepted")
	}
}

func TestGroupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, prefix := range []string{"", "/"} {
		r := gin.New()
		g := groupWithPrefix(r, prefix)
		g.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("prefix %q: status %d", prefix, w.Code)
		}
	}

	r := gin.New()
	g := groupWithPrefix(r, "/api/v1")
	g.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("prefixed route status %d", w.Code)
	}
}
