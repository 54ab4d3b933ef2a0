package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/repo"
)

// AuditQueryRepo defines the read-side repository contract for the audit
// query façade.
type AuditQueryRepo interface {
	CountSessions(ctx context.Context, db *gorm.DB, f repo.SessionFilter) (int64, error)
	ListSessionsPage(ctx context.Context, db *gorm.DB, f repo.SessionFilter, offset, limit int) ([]domain.MessageAuditSession, error)
	GetSessionByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.MessageAuditSession, error)
	ListEventsByMessageID(ctx context.Context, db *gorm.DB, messageID string) ([]domain.MessageAuditEvent, error)
}

// SessionQuery carries the optional filters and paging for FindSessions.
// Zero values mean "no filter".
type SessionQuery struct {
	UserID      *int64
	FinalStatus string
	DateFrom    *time.Time
	DateTo      *time.Time
	ErrorOnly   bool
	MessageID   string

	Page int // zero-based
	Size int
}

// SessionPage is one page of sessions plus paging metadata.
type SessionPage struct {
	Sessions   []domain.MessageAuditSession `json:"sessions"`
	Page       int                          `json:"page"`
	Size       int                          `json:"size"`
	Total      int64                        `json:"total"`
	TotalPages int                          `json:"total_pages"`
}

// AuditQueryService is the read-only façade over the audit store. It never
// mutates sessions or events.
type AuditQueryService struct {
	DB   *gorm.DB
	Repo AuditQueryRepo
}

// NewAuditQueryService wires the query façade.
func NewAuditQueryService(db *gorm.DB, r AuditQueryRepo) *AuditQueryService {
	return &AuditQueryService{DB: db, Repo: r}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// FindSessions returns one page of sessions matching q, newest first.
func (s *AuditQueryService) FindSessions(ctx context.Context, q SessionQuery) (*SessionPage, error) {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}

	f := repo.SessionFilter{
		UserID:      q.UserID,
		FinalStatus: q.FinalStatus,
		DateFrom:    q.DateFrom,
		DateTo:      q.DateTo,
		ErrorOnly:   q.ErrorOnly,
		MessageID:   q.MessageID,
	}

	total, err := s.Repo.CountSessions(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}

	sessions, err := s.Repo.ListSessionsPage(ctx, s.DB, f, q.Page*q.Size, q.Size)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	return &SessionPage{
		Sessions:   sessions,
		Page:       q.Page,
		Size:       q.Size,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// GetSession returns a single session by its business key, or
// repo.ErrNotFound.
func (s *AuditQueryService) GetSession(ctx context.Context, messageID string) (*domain.MessageAuditSession, error) {
	return s.Repo.GetSessionByMessageID(ctx, s.DB, messageID)
}

// GetEvents returns the full event trail for a session in chronological
// order. It verifies the session exists first so the caller can distinguish
// "unknown session" from "session with no events".
func (s *AuditQueryService) GetEvents(ctx context.Context, messageID string) ([]domain.MessageAuditEvent, error) {
	if _, err := s.Repo.GetSessionByMessageID(ctx, s.DB, messageID); err != nil {
		return nil, err
	}
	return s.Repo.ListEventsByMessageID(ctx, s.DB, messageID)
}
