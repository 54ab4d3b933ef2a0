package handlers

import (
	"context"

	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/services"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// MessageSender dispatches one outbound message through the delivery engine.
// Implemented by services.MessageService.
type MessageSender interface {
	Send(ctx context.Context, req stickerbot.SendMessageRequest) (*stickerbot.SendMessageResponse, error)
}

// RetryInitiator starts an asynchronous re-send of a failed session.
// Implemented by services.RetryService.
type RetryInitiator interface {
	InitiateRetry(ctx context.Context, sourceMessageID string) (*services.RetryInitiation, error)
}

// AuditReader is the read side of the audit store.
// Implemented by services.AuditQueryService.
type AuditReader interface {
	FindSessions(ctx context.Context, q services.SessionQuery) (*services.SessionPage, error)
	GetSession(ctx context.Context, messageID string) (*domain.MessageAuditSession, error)
	GetEvents(ctx context.Context, messageID string) ([]domain.MessageAuditEvent, error)
}

// Handlers bundles the API endpoints with their injected services.
type Handlers struct {
	sender MessageSender
	retry  RetryInitiator
	audit  AuditReader
}

// New constructs the handler set.
func New(sender MessageSender, retry RetryInitiator, audit AuditReader) *Handlers {
	return &Handlers{sender: sender, retry: retry, audit: audit}
}
