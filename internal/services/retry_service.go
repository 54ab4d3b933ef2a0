// Package services – RetryService
//
// This file implements the manual-retry coordinator for FAILED delivery
// sessions. Idempotency is enforced on two levels:
//
//  1. Persistent check: if a retry session for the source already exists with
//     final status SENT, or is still in flight (final status unset), the
//     request is rejected with RETRY_EXISTS. This check survives process
//     restarts and covers retries initiated by another process.
//  2. Process-local in-flight lock: a concurrent second click on the same
//     source is rejected with RETRY_IN_PROGRESS before the first retry's
//     session row is even visible. The lock is an optimization, not a
//     correctness boundary across processes.
//
// Initiation is fire-and-forget: the caller gets IN_PROGRESS immediately and
// polls the audit trail for the eventual outcome.
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// RetryStateInProgress is the only state InitiateRetry reports on acceptance.
const RetryStateInProgress = "IN_PROGRESS"

// RetryRepo defines the repository contract required by RetryService.
type RetryRepo interface {
	// GetSessionByMessageID fetches the source session by business key.
	GetSessionByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.MessageAuditSession, error)

	// FindActiveOrSuccessfulRetryBySource returns an existing in-flight or
	// SENT retry for the source, or repo.ErrNotFound.
	FindActiveOrSuccessfulRetryBySource(ctx context.Context, db *gorm.DB, sourceMessageID string) (*domain.MessageAuditSession, error)
}

// Sender dispatches one logical send. Implemented by MessageService.
type Sender interface {
	Send(ctx context.Context, req stickerbot.SendMessageRequest) (*stickerbot.SendMessageResponse, error)
}

// RetryInitiation is the immediate acknowledgment returned to the operator.
type RetryInitiation struct {
	RetryMessageID  string `json:"retry_message_id"`
	SourceMessageID string `json:"source_message_id"`
	State           string `json:"state"`
}

// inflightLocks is the process-local in-flight lock table: source business
// key -> retry business key. All access is compare-and-swap style under one
// mutex (claim-if-absent, unconditional remove).
type inflightLocks struct {
	mu     sync.Mutex
	active map[string]string
}

func newInflightLocks() *inflightLocks {
	return &inflightLocks{active: make(map[string]string)}
}

// claim records retryID for sourceID if no retry is in flight. On conflict it
// returns the holder and false.
func (l *inflightLocks) claim(sourceID, retryID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.active[sourceID]; ok {
		return existing, false
	}
	l.active[sourceID] = retryID
	return retryID, true
}

// release removes the lock entry unconditionally.
func (l *inflightLocks) release(sourceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, sourceID)
}

// held reports whether a retry is currently in flight for sourceID.
func (l *inflightLocks) held(sourceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.active[sourceID]
	return ok
}

// RetryService coordinates manual retries of FAILED delivery sessions.
type RetryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the session lookup repository.
	Repo RetryRepo
	// Sender runs the retry through the same retry/backoff controller as an
	// original send.
	Sender Sender

	// Submit schedules the asynchronous execution of a retry. Defaults to a
	// plain goroutine; tests inject a synchronous variant.
	Submit func(task func())

	locks *inflightLocks
}

// NewRetryService constructs a RetryService with goroutine-based dispatch.
func NewRetryService(db *gorm.DB, repo RetryRepo, sender Sender) *RetryService {
	return &RetryService{
		DB:     db,
		Repo:   repo,
		Sender: sender,
		Submit: func(task func()) { go task() },
		locks:  newInflightLocks(),
	}
}

// InitiateRetry starts an asynchronous re-send of a FAILED session and
// returns an IN_PROGRESS acknowledgment, or a *RetryNotAllowedError with one
// of the rejection codes (NOT_FOUND, NOT_FAILED, RETRY_EXISTS,
// RETRY_IN_PROGRESS). The delivery client is never invoked on rejection.
func (s *RetryService) InitiateRetry(ctx context.Context, sourceMessageID string) (*RetryInitiation, error) {
	source, err := s.Repo.GetSessionByMessageID(ctx, s.DB, sourceMessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			manualRetryInitiations.WithLabelValues(RetryRejectedNotFound).Inc()
			return nil, &RetryNotAllowedError{
				Code:    RetryRejectedNotFound,
				Message: "session not found: " + sourceMessageID,
			}
		}
		return nil, err
	}

	if !source.Failed() {
		status := "IN_PROGRESS"
		if source.FinalStatus != nil {
			status = *source.FinalStatus
		}
		log.Warn().Str("source_message_id", sourceMessageID).Str("status", status).
			Msg("retry rejected: source session is not FAILED")
		manualRetryInitiations.WithLabelValues(RetryRejectedNotFailed).Inc()
		return nil, &RetryNotAllowedError{
			Code:    RetryRejectedNotFailed,
			Message: "only FAILED sessions can be retried; current status: " + status,
		}
	}

	// Persistent idempotency: a SENT or still-running retry blocks new ones.
	if existing, err := s.Repo.FindActiveOrSuccessfulRetryBySource(ctx, s.DB, sourceMessageID); err == nil {
		status := RetryStateInProgress
		if existing.FinalStatus != nil {
			status = *existing.FinalStatus
		}
		log.Warn().Str("source_message_id", sourceMessageID).
			Str("retry_message_id", existing.MessageID).Str("status", status).
			Msg("retry rejected: retry already exists")
		manualRetryInitiations.WithLabelValues(RetryRejectedExists).Inc()
		return nil, &RetryNotAllowedError{
			Code:    RetryRejectedExists,
			Message: "a retry is already running or has succeeded: " + existing.MessageID,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	retryMessageID := uuid.NewString()

	// Process-local in-flight lock: reject the racing second click.
	if holder, ok := s.locks.claim(sourceMessageID, retryMessageID); !ok {
		log.Warn().Str("source_message_id", sourceMessageID).Str("retry_message_id", holder).
			Msg("retry rejected: retry already in flight in this process")
		manualRetryInitiations.WithLabelValues(RetryRejectedInProgress).Inc()
		return nil, &RetryNotAllowedError{
			Code:    RetryRejectedInProgress,
			Message: "a retry is already in flight; wait for it to finish",
		}
	}

	req := buildRetryRequest(source, retryMessageID)

	log.Info().Str("source_message_id", sourceMessageID).Str("retry_message_id", retryMessageID).
		Msg("scheduling async retry")
	manualRetryInitiations.WithLabelValues("accepted").Inc()

	s.Submit(func() { s.executeRetry(sourceMessageID, retryMessageID, req) })

	return &RetryInitiation{
		RetryMessageID:  retryMessageID,
		SourceMessageID: sourceMessageID,
		State:           RetryStateInProgress,
	}, nil
}

// executeRetry runs the scheduled send on a detached context; the initiating
// request has long returned. The in-flight lock is always released, whatever
// the outcome.
func (s *RetryService) executeRetry(sourceMessageID, retryMessageID string, req stickerbot.SendMessageRequest) {
	defer s.locks.release(sourceMessageID)

	if _, err := s.Sender.Send(context.Background(), req); err != nil {
		log.Warn().Err(err).Str("source_message_id", sourceMessageID).
			Str("retry_message_id", retryMessageID).Msg("async retry failed")
		return
	}
	log.Info().Str("source_message_id", sourceMessageID).
		Str("retry_message_id", retryMessageID).Msg("async retry succeeded")
}

// buildRetryRequest rebuilds the original request from the audited snapshot,
// forcing the new business key and the back-reference to the source session.
func buildRetryRequest(source *domain.MessageAuditSession, retryMessageID string) stickerbot.SendMessageRequest {
	parseMode := source.ParseMode
	if parseMode == "" {
		parseMode = stickerbot.ParseModePlain
	}
	return stickerbot.SendMessageRequest{
		UserID:                 source.UserID,
		ChatID:                 source.ChatID,
		Text:                   source.MessageText,
		ParseMode:              parseMode,
		DisableWebPagePreview:  source.DisableWebPagePreview,
		AuditMessageIDOverride: retryMessageID,
		RetryOfMessageID:       source.MessageID,
	}
}
