package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/config"
)

// CleanupRepo deletes expired audit data.
type CleanupRepo interface {
	DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

// AuditCleanup periodically purges audit sessions (and their events) whose
// retention window has elapsed.
type AuditCleanup struct {
	DB       *gorm.DB
	Repo     CleanupRepo
	Interval time.Duration

	now func() time.Time
}

// NewAuditCleanup wires the sweeper from config. Returns nil when cleanup is
// disabled, so callers can guard the Run call with a nil check.
func NewAuditCleanup(db *gorm.DB, r CleanupRepo, cfg config.AuditConfig) *AuditCleanup {
	if !cfg.CleanupEnabled {
		return nil
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &AuditCleanup{DB: db, Repo: r, Interval: interval, now: time.Now}
}

// Run sweeps once immediately, then on every tick until ctx is canceled.
// Intended to be launched as a goroutine from main.
func (c *AuditCleanup) Run(ctx context.Context) {
	log.Info().Dur("interval", c.Interval).Msg("audit cleanup started")

	c.sweep(ctx)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("audit cleanup stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// sweep deletes everything past retention. Failures are logged and retried
// on the next tick.
func (c *AuditCleanup) sweep(ctx context.Context) {
	deleted, err := c.Repo.DeleteExpiredSessions(ctx, c.DB, c.now())
	if err != nil {
		log.Warn().Err(err).Msg("audit cleanup sweep failed")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("expired audit sessions purged")
	}
}
