// Package httpapi wires the HTTP transport (Gin) to the application
// services, middleware, and route handlers. It centralizes cross-cutting
// concerns: tracing, correlation IDs, logging with redaction, panic recovery,
// metrics, compression, CORS, security headers, rate limiting, and admin
// authentication.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the correlation id
//  3. RedactingLogger: structured logs without credentials or identifiers
//  4. Recovery: panics become JSON 500s after logging
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter per client IP
//  8. Gzip, CORS, and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/config"
	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/http/handlers"
	"github.com/stickerart/sticker-gallery-backend/internal/http/middleware"
	"github.com/stickerart/sticker-gallery-backend/internal/repo"
	"github.com/stickerart/sticker-gallery-backend/internal/services"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// auditRepoShim adapts the repository free functions to the interfaces the
// services expect. It keeps the services decoupled from the concrete repo
// package while reusing its functions unchanged.
type auditRepoShim struct{}

func (auditRepoShim) CreateSession(ctx context.Context, db *gorm.DB, s *domain.MessageAuditSession) error {
	return repo.CreateSession(ctx, db, s)
}

func (auditRepoShim) GetSessionByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.MessageAuditSession, error) {
	return repo.GetSessionByMessageID(ctx, db, messageID)
}

func (auditRepoShim) UpdateSession(ctx context.Context, db *gorm.DB, s *domain.MessageAuditSession) error {
	return repo.UpdateSession(ctx, db, s)
}

func (auditRepoShim) CreateEvent(ctx context.Context, db *gorm.DB, e *domain.MessageAuditEvent) error {
	return repo.CreateEvent(ctx, db, e)
}

func (auditRepoShim) FindActiveOrSuccessfulRetryBySource(ctx context.Context, db *gorm.DB, sourceMessageID string) (*domain.MessageAuditSession, error) {
	return repo.FindActiveOrSuccessfulRetryBySource(ctx, db, sourceMessageID)
}

func (auditRepoShim) CountSessions(ctx context.Context, db *gorm.DB, f repo.SessionFilter) (int64, error) {
	return repo.CountSessions(ctx, db, f)
}

func (auditRepoShim) ListSessionsPage(ctx context.Context, db *gorm.DB, f repo.SessionFilter, offset, limit int) ([]domain.MessageAuditSession, error) {
	return repo.ListSessionsPage(ctx, db, f, offset, limit)
}

func (auditRepoShim) ListEventsByMessageID(ctx context.Context, db *gorm.DB, messageID string) ([]domain.MessageAuditEvent, error) {
	return repo.ListEventsByMessageID(ctx, db, messageID)
}

// RegisterRoutes attaches all middleware and endpoints to the Gin engine,
// builds the service graph on top of db, and mounts the versioned API under
// cfg.APIBasePath.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, client services.DeliveryClient, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{middleware.HeaderRequestID, "Content-Length"},
			AllowCredentials: false, // must stay false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{middleware.HeaderRequestID, "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo shims / db / delivery client.
	auditSvc := services.NewAuditService(db, auditRepoShim{}, cfg.Audit.Retention)
	msgSvc := services.NewMessageService(client, auditSvc, cfg.StickerBot)
	retrySvc := services.NewRetryService(db, auditRepoShim{}, msgSvc)
	querySvc := services.NewAuditQueryService(db, auditRepoShim{})
	h := handlers.New(msgSvc, retrySvc, querySvc)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/messages/send", h.SendMessage)

		admin := api.Group("/admin", middleware.ServiceTokenAuth(cfg.AdminToken))
		{
			admin.GET("/message-audit/sessions", h.ListAuditSessions)
			admin.GET("/message-audit/sessions/:messageId", h.GetAuditSession)
			admin.GET("/message-audit/sessions/:messageId/events", h.GetAuditSessionEvents)
			admin.POST("/message-audit/sessions/:messageId/retry", h.RetryAuditSession)
		}
	}
}

// NewDeliveryClient builds the production StickerBot client from config.
func NewDeliveryClient(cfg config.Config) services.DeliveryClient {
	return stickerbot.NewClient(cfg.StickerBot)
}

// limitBody caps the request body size using http.MaxBytesReader; reads past
// the cap error out downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
