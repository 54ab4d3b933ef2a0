// Package services – AuditService
//
// This file implements the audit recorder for outbound message delivery.
// Every method is best-effort and side-effect-only: failures to persist the
// audit trail are logged and swallowed, never propagated, because a storage
// hiccup in the audit path must not cause a successful delivery to be
// reported as failed (or vice versa).
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// AuditRepo defines the repository contract required by AuditService.
type AuditRepo interface {
	// CreateSession inserts a new audit session row.
	CreateSession(ctx context.Context, db *gorm.DB, s *domain.MessageAuditSession) error

	// GetSessionByMessageID fetches a session by business key.
	GetSessionByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.MessageAuditSession, error)

	// UpdateSession persists session mutations (final status, identifiers).
	UpdateSession(ctx context.Context, db *gorm.DB, s *domain.MessageAuditSession) error

	// CreateEvent appends one immutable event row.
	CreateEvent(ctx context.Context, db *gorm.DB, e *domain.MessageAuditEvent) error
}

// AuditService records session lifecycle and per-attempt events for the
// delivery engine. It owns the session state machine writes; nothing else in
// the system mutates audit rows.
type AuditService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the audit repository used by this service.
	Repo AuditRepo
	// Retention is how long a session stays before the sweeper may remove it.
	Retention time.Duration
	// now is a clock seam for tests.
	now func() time.Time
}

// NewAuditService constructs an AuditService with the given retention horizon.
// A non-positive retention falls back to 90 days.
func NewAuditService(db *gorm.DB, repo AuditRepo, retention time.Duration) *AuditService {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &AuditService{DB: db, Repo: repo, Retention: retention, now: time.Now}
}

// StartSession creates the session row plus the opening
// REQUEST_PREPARED/SUCCEEDED event, snapshotting the destination URL and
// request shape. Secrets (the service token) are never written.
func (s *AuditService) StartSession(ctx context.Context, messageID string, req stickerbot.SendMessageRequest, targetURL string) {
	now := s.now().UTC()
	session := &domain.MessageAuditSession{
		MessageID:             messageID,
		UserID:                req.UserID,
		ChatID:                req.ChatID,
		MessageText:           req.Text,
		ParseMode:             req.ParseMode,
		DisableWebPagePreview: req.DisableWebPagePreview,
		StartedAt:             now,
		ExpiresAt:             now.Add(s.Retention),
	}
	if req.RetryOfMessageID != "" {
		retryOf := req.RetryOfMessageID
		session.RetryOfMessageID = &retryOf
	}
	session.RequestPayload = marshalPayload(map[string]any{
		"url":                   targetURL,
		"userId":                req.UserID,
		"chatId":                req.ChatID,
		"parseMode":             req.ParseMode,
		"disableWebPagePreview": req.DisableWebPagePreview,
	})

	if err := s.Repo.CreateSession(ctx, s.DB, session); err != nil {
		log.Warn().Err(err).Str("message_id", messageID).Msg("message audit: failed to start session")
		return
	}

	s.appendEvent(ctx, session, domain.StageRequestPrepared, domain.EventSucceeded,
		map[string]any{"textLength": len(req.Text)}, "", "")
}

// AddStageEvent appends one event to an existing session. No-op if the
// session cannot be found.
func (s *AuditService) AddStageEvent(ctx context.Context, messageID string, stage domain.AuditStage, status domain.AuditEventStatus, payload map[string]any, errorCode, errorMessage string) {
	session, err := s.Repo.GetSessionByMessageID(ctx, s.DB, messageID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("message_id", messageID).Msg("message audit: failed to load session for event")
		}
		return
	}
	s.appendEvent(ctx, session, stage, status, payload, errorCode, errorMessage)
}

// FinishSuccess finalizes the session as SENT, records the transport
// identifiers, and appends the COMPLETED/SUCCEEDED event.
func (s *AuditService) FinishSuccess(ctx context.Context, messageID string, resp *stickerbot.SendMessageResponse) {
	session, err := s.Repo.GetSessionByMessageID(ctx, s.DB, messageID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("message_id", messageID).Msg("message audit: failed to finish success")
		}
		return
	}
	if session.Terminal() {
		// Final status is set at most once; never reverted.
		return
	}

	now := s.now().UTC()
	final := domain.FinalStatusSent
	session.FinalStatus = &final
	session.TelegramChatID = &resp.ChatID
	session.TelegramMessageID = &resp.MessageID
	session.CompletedAt = &now
	if err := s.Repo.UpdateSession(ctx, s.DB, session); err != nil {
		log.Warn().Err(err).Str("message_id", messageID).Msg("message audit: failed to finish success")
		return
	}

	s.appendEvent(ctx, session, domain.StageCompleted, domain.EventSucceeded, map[string]any{
		"chatId":    resp.ChatID,
		"messageId": resp.MessageID,
		"status":    resp.Status,
	}, "", "")
}

// FinishFailure finalizes the session as FAILED with an error code/message
// and appends the FAILED/FAILED event.
func (s *AuditService) FinishFailure(ctx context.Context, messageID, errorCode, errorMessage string, payload map[string]any) {
	session, err := s.Repo.GetSessionByMessageID(ctx, s.DB, messageID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("message_id", messageID).Msg("message audit: failed to finish failure")
		}
		return
	}
	if session.Terminal() {
		return
	}

	if errorCode == "" {
		errorCode = ErrorCodeGeneric
	}
	now := s.now().UTC()
	final := domain.FinalStatusFailed
	session.FinalStatus = &final
	session.ErrorCode = &errorCode
	session.ErrorMessage = &errorMessage
	session.CompletedAt = &now
	if err := s.Repo.UpdateSession(ctx, s.DB, session); err != nil {
		log.Warn().Err(err).Str("message_id", messageID).Msg("message audit: failed to finish failure")
		return
	}

	s.appendEvent(ctx, session, domain.StageFailed, domain.EventFailed, payload, errorCode, errorMessage)
}

// appendEvent persists one event row, swallowing any storage error.
func (s *AuditService) appendEvent(ctx context.Context, session *domain.MessageAuditSession, stage domain.AuditStage, status domain.AuditEventStatus, payload map[string]any, errorCode, errorMessage string) {
	event := &domain.MessageAuditEvent{
		SessionID:   session.ID,
		MessageID:   session.MessageID,
		Stage:       stage,
		EventStatus: status,
		Payload:     marshalPayload(payload),
		CreatedAt:   s.now().UTC(),
	}
	if errorCode != "" {
		event.ErrorCode = &errorCode
	}
	if errorMessage != "" {
		event.ErrorMessage = &errorMessage
	}
	if err := s.Repo.CreateEvent(ctx, s.DB, event); err != nil {
		log.Warn().Err(err).Str("message_id", session.MessageID).Str("stage", string(stage)).
			Msg("message audit: failed to persist event")
	}
}

// marshalPayload encodes a payload snapshot as JSON, returning "" when empty
// or unencodable.
func marshalPayload(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(b)
}
