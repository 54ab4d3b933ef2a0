// Package services – MessageService
//
// This file implements the retry/backoff controller, the sole authority on
// retry-vs-terminal classification for outbound sends. One call to Send is
// one logical delivery attempt chain: a fresh attempt counter, a fresh audit
// session, and a single terminal outcome. Backoff delays suspend only the
// calling goroutine, so concurrent sends never block each other.
package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stickerart/sticker-gallery-backend/internal/config"
	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// DeliveryClient performs one network call to the StickerBot API.
// Implemented by stickerbot.Client.
type DeliveryClient interface {
	SendMessage(ctx context.Context, req stickerbot.SendMessageRequest) (*stickerbot.SendMessageResponse, error)
}

// AuditRecorder is the best-effort audit trail consumed by the controller.
// Implemented by AuditService; all methods must swallow their own errors.
type AuditRecorder interface {
	StartSession(ctx context.Context, messageID string, req stickerbot.SendMessageRequest, targetURL string)
	AddStageEvent(ctx context.Context, messageID string, stage domain.AuditStage, status domain.AuditEventStatus, payload map[string]any, errorCode, errorMessage string)
	FinishSuccess(ctx context.Context, messageID string, resp *stickerbot.SendMessageResponse)
	FinishFailure(ctx context.Context, messageID, errorCode, errorMessage string, payload map[string]any)
}

// MessageService drives one logical send through a bounded retry loop with
// exponential backoff, recording a complete per-attempt audit trail.
type MessageService struct {
	// Client performs the actual API calls.
	Client DeliveryClient
	// Audit records the session lifecycle. Never fails the main path.
	Audit AuditRecorder
	// Config holds the endpoint, credential, and retry knobs.
	Config config.StickerBotConfig

	// sleep is a backoff seam for tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// attemptContext carries the explicit per-attempt state threaded through one
// retry loop. It is scoped to a single Send call and never shared.
type attemptContext struct {
	messageID string
	attempt   int
}

// NewMessageService constructs a MessageService with the default backoff
// sleeper.
func NewMessageService(client DeliveryClient, audit AuditRecorder, cfg config.StickerBotConfig) *MessageService {
	return &MessageService{
		Client: client,
		Audit:  audit,
		Config: cfg,
		sleep:  sleepCtx,
	}
}

// Send delivers one message through the StickerBot API, retrying transient
// failures up to the configured attempt budget. The caller observes either
// the success payload or a single terminal *DeliveryError; intermediate
// retries are visible only in the audit trail.
func (s *MessageService) Send(ctx context.Context, req stickerbot.SendMessageRequest) (*stickerbot.SendMessageResponse, error) {
	ac := attemptContext{messageID: req.AuditMessageIDOverride, attempt: 1}
	if ac.messageID == "" {
		ac.messageID = uuid.NewString()
	}

	targetURL := ""
	if s.Config.APIURL != "" {
		targetURL = s.Config.APIURL + stickerbot.SendPath
	}
	s.Audit.StartSession(ctx, ac.messageID, req, targetURL)

	// Preconditions: endpoint and credential must be configured. A missing
	// value is CONFIG_ERROR and is never retried.
	if s.Config.APIURL == "" {
		return nil, s.fail(ctx, ac, ErrorCodeConfig, "StickerBot API URL is not configured",
			map[string]any{"config": "STICKERBOT_API_URL"})
	}
	if s.Config.ServiceToken == "" {
		return nil, s.fail(ctx, ac, ErrorCodeConfig, "StickerBot service token is not configured",
			map[string]any{"config": "STICKERBOT_SERVICE_TOKEN"})
	}

	maxAttempts := s.Config.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for {
		s.Audit.AddStageEvent(ctx, ac.messageID, domain.StageAPICallStarted, domain.EventStarted,
			map[string]any{"attempt": ac.attempt, "url": targetURL}, "", "")
		deliveryAttempts.Inc()

		resp, err := s.Client.SendMessage(ctx, req)
		out := classify(resp, err)

		if out.success {
			s.Audit.AddStageEvent(ctx, ac.messageID, domain.StageAPICallSucceeded, domain.EventSucceeded,
				map[string]any{
					"attempt":   ac.attempt,
					"status":    resp.Status,
					"chatId":    resp.ChatID,
					"messageId": resp.MessageID,
				}, "", "")
			s.Audit.FinishSuccess(ctx, ac.messageID, resp)
			deliveryOutcomes.WithLabelValues(domain.FinalStatusSent, "").Inc()
			log.Info().
				Str("message_id", ac.messageID).
				Int64("user_id", req.UserID).
				Int("attempt", ac.attempt).
				Int64("telegram_message_id", resp.MessageID).
				Msg("message delivered")
			return resp, nil
		}

		if out.retryable && ac.attempt < maxAttempts {
			delay := backoffDelay(s.Config.Retry, ac.attempt)
			payload := out.payload(ac.attempt)
			payload["nextDelayMs"] = delay.Milliseconds()
			s.Audit.AddStageEvent(ctx, ac.messageID, domain.StageAPICallFailed, domain.EventRetry,
				payload, out.code, out.message)
			deliveryRetries.WithLabelValues(out.code).Inc()
			log.Warn().
				Str("message_id", ac.messageID).
				Str("code", out.code).
				Int("attempt", ac.attempt).
				Dur("next_delay", delay).
				Msg("send attempt failed, retrying")

			if err := s.sleep(ctx, delay); err != nil {
				// The caller gave up while we were backing off; finalize with
				// the last classified failure so the trail stays complete.
				return nil, s.fail(ctx, ac, out.code, out.message, out.payload(ac.attempt))
			}
			ac.attempt++
			continue
		}

		return nil, s.fail(ctx, ac, out.code, out.message, out.payload(ac.attempt))
	}
}

// fail records the terminal API_CALL_FAILED and FAILED events, finalizes the
// session, and builds the error surfaced to the caller.
func (s *MessageService) fail(ctx context.Context, ac attemptContext, code, message string, payload map[string]any) error {
	s.Audit.AddStageEvent(ctx, ac.messageID, domain.StageAPICallFailed, domain.EventFailed,
		payload, code, message)
	s.Audit.FinishFailure(ctx, ac.messageID, code, message, payload)
	deliveryOutcomes.WithLabelValues(domain.FinalStatusFailed, code).Inc()
	log.Error().
		Str("message_id", ac.messageID).
		Str("code", code).
		Int("attempt", ac.attempt).
		Msg("message delivery failed")
	return &DeliveryError{Code: code, Message: message}
}

// outcome is one classified delivery attempt result.
type outcome struct {
	success   bool
	retryable bool
	code      string
	message   string

	httpStatus   int    // 0 when no HTTP response was received
	responseBody string // truncated, "" when unavailable
	statusField  string // the API's status value on UNEXPECTED_STATUS
}

// payload builds the audit payload snapshot for a failed attempt.
func (o outcome) payload(attempt int) map[string]any {
	p := map[string]any{"attempt": attempt}
	if o.httpStatus != 0 {
		p["httpStatus"] = o.httpStatus
	}
	if o.responseBody != "" {
		p["responseBody"] = o.responseBody
	}
	if o.statusField != "" {
		p["status"] = o.statusField
	}
	return p
}

// classify maps a Delivery Client result onto the retry taxonomy:
//
//	success                        -> terminal success
//	2xx, unrecognized status field -> UNEXPECTED_STATUS, terminal
//	2xx, empty body                -> EMPTY_RESPONSE, terminal
//	429 / 408                      -> HTTP_4XX, retryable
//	other 4xx                      -> HTTP_4XX, terminal
//	5xx                            -> HTTP_5XX, retryable
//	no HTTP response               -> NETWORK_ERROR, retryable
func classify(resp *stickerbot.SendMessageResponse, err error) outcome {
	if err == nil {
		if resp == nil {
			return outcome{code: ErrorCodeEmptyResponse, message: "empty response from StickerBot API"}
		}
		if !resp.Sent() {
			return outcome{
				code:        ErrorCodeUnexpectedStatus,
				message:     "send not confirmed: status " + resp.Status,
				statusField: resp.Status,
			}
		}
		return outcome{success: true}
	}

	var apiErr *stickerbot.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusRequestTimeout:
			return outcome{retryable: true, code: ErrorCodeHTTP4xx, message: apiErr.Body,
				httpStatus: apiErr.StatusCode, responseBody: apiErr.Body}
		case apiErr.StatusCode >= 500:
			return outcome{retryable: true, code: ErrorCodeHTTP5xx, message: apiErr.Body,
				httpStatus: apiErr.StatusCode, responseBody: apiErr.Body}
		default:
			return outcome{code: ErrorCodeHTTP4xx, message: apiErr.Body,
				httpStatus: apiErr.StatusCode, responseBody: apiErr.Body}
		}
	}

	return outcome{retryable: true, code: ErrorCodeNetwork, message: stickerbot.TruncateBody(err.Error())}
}

// backoffDelay computes initialDelay * multiplier^(attempt-1).
func backoffDelay(cfg config.RetryConfig, attempt int) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	return time.Duration(d)
}

// sleepCtx waits for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
