// Package repo implements the data persistence layer for the message-audit
// trail, backed by GORM. This file provides repository functions for audit
// sessions and their append-only events.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by higher-level services
// (see services.AuditService and services.AuditQueryService) which enforce
// the session lifecycle and the best-effort audit policy.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// SessionFilter describes the optional filters accepted by the session
// listing queries. Zero values mean "not filtered".
type SessionFilter struct {
	UserID      *int64     // requesting user
	FinalStatus string     // "SENT", "FAILED" or "" (any)
	DateFrom    *time.Time // StartedAt >= DateFrom
	DateTo      *time.Time // StartedAt <= DateTo
	ErrorOnly   bool       // only sessions with a recorded error code
	MessageID   string     // exact business key match
}

// CreateSession inserts a new audit session row.
func CreateSession(ctx context.Context, db *gorm.DB, s *domain.MessageAuditSession) error {
	return db.WithContext(ctx).Create(s).Error
}

// GetSessionByMessageID fetches one session by its business key,
// or ErrNotFound if missing.
func GetSessionByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.MessageAuditSession, error) {
	var s domain.MessageAuditSession
	if err := db.WithContext(ctx).Where("message_id = ?", messageID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSession persists all fields of an existing session row.
func UpdateSession(ctx context.Context, db *gorm.DB, s *domain.MessageAuditSession) error {
	return db.WithContext(ctx).Save(s).Error
}

// CreateEvent appends one immutable event row.
func CreateEvent(ctx context.Context, db *gorm.DB, e *domain.MessageAuditEvent) error {
	return db.WithContext(ctx).Create(e).Error
}

// FindActiveOrSuccessfulRetryBySource returns an existing retry session for
// the given source business key whose final status is SENT or still unset
// (in flight). Returns ErrNotFound when no such retry exists. This is the
// persistent half of the manual-retry idempotency check; it also covers
// retries initiated by another process or before a crash.
func FindActiveOrSuccessfulRetryBySource(ctx context.Context, db *gorm.DB, sourceMessageID string) (*domain.MessageAuditSession, error) {
	var s domain.MessageAuditSession
	err := db.WithContext(ctx).
		Where("retry_of_message_id = ?", sourceMessageID).
		Where("final_status IS NULL OR final_status = ?", domain.FinalStatusSent).
		Order("started_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSessions returns the number of sessions matching the filter.
func CountSessions(ctx context.Context, db *gorm.DB, f SessionFilter) (int64, error) {
	var total int64
	err := applySessionFilter(db.WithContext(ctx).Model(&domain.MessageAuditSession{}), f).
		Count(&total).Error
	return total, err
}

// ListSessionsPage returns a page of sessions matching the filter, ordered by
// StartedAt descending (newest first), then ID descending for stable paging.
func ListSessionsPage(ctx context.Context, db *gorm.DB, f SessionFilter, offset, limit int) ([]domain.MessageAuditSession, error) {
	var out []domain.MessageAuditSession
	err := applySessionFilter(db.WithContext(ctx), f).
		Order("started_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListEventsByMessageID returns all events of a session in chronological
// order (CreatedAt ASC, ID ASC).
func ListEventsByMessageID(ctx context.Context, db *gorm.DB, messageID string) ([]domain.MessageAuditEvent, error) {
	var out []domain.MessageAuditEvent
	err := db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteExpiredSessions removes sessions whose retention horizon has passed,
// together with their events, and reports how many sessions were removed.
// Events are deleted first so the sweep does not depend on the SQLite
// foreign_keys pragma being active on every connection.
func DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var removed int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&domain.MessageAuditSession{}).
			Select("id").
			Where("expires_at < ?", now)
		if err := tx.Where("session_id IN (?)", sub).
			Delete(&domain.MessageAuditEvent{}).Error; err != nil {
			return err
		}
		res := tx.Where("expires_at < ?", now).Delete(&domain.MessageAuditSession{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

// applySessionFilter composes the WHERE clauses for SessionFilter.
func applySessionFilter(q *gorm.DB, f SessionFilter) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.FinalStatus != "" {
		q = q.Where("final_status = ?", f.FinalStatus)
	}
	if f.DateFrom != nil {
		q = q.Where("started_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("started_at <= ?", *f.DateTo)
	}
	if f.ErrorOnly {
		q = q.Where("error_code IS NOT NULL")
	}
	if f.MessageID != "" {
		q = q.Where("message_id = ?", f.MessageID)
	}
	return q
}
