// Audit administration HTTP handlers.
//
// These endpoints sit under /admin/message-audit and are guarded by the
// service-token middleware:
//   - GET  /sessions                       paged, filtered session listing
//   - GET  /sessions/{messageId}           one session
//   - GET  /sessions/{messageId}/events    the full stage trail
//   - POST /sessions/{messageId}/retry     initiate an async manual retry
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stickerart/sticker-gallery-backend/internal/domain"
	"github.com/stickerart/sticker-gallery-backend/internal/services"
	"github.com/stickerart/sticker-gallery-backend/internal/utils"
)

// SessionView is the JSON projection of one audit session.
type SessionView struct {
	MessageID             string     `json:"message_id"`
	UserID                int64      `json:"user_id"`
	ChatID                *int64     `json:"chat_id,omitempty"`
	MessageText           string     `json:"message_text"`
	ParseMode             string     `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool       `json:"disable_web_page_preview,omitempty"`
	FinalStatus           *string    `json:"final_status,omitempty"`
	ErrorCode             *string    `json:"error_code,omitempty"`
	ErrorMessage          *string    `json:"error_message,omitempty"`
	TelegramChatID        *int64     `json:"telegram_chat_id,omitempty"`
	TelegramMessageID     *int64     `json:"telegram_message_id,omitempty"`
	StartedAt             time.Time  `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	RetryOfMessageID      *string    `json:"retry_of_message_id,omitempty"`
}

// EventView is the JSON projection of one audit event.
type EventView struct {
	Stage        string    `json:"stage"`
	EventStatus  string    `json:"event_status"`
	Payload      string    `json:"payload,omitempty"`
	ErrorCode    *string   `json:"error_code,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Pagination carries list paging metadata.
type Pagination struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListSessionsResponse is one page of sessions.
type ListSessionsResponse struct {
	Sessions   []SessionView `json:"sessions"`
	Pagination Pagination    `json:"pagination"`
}

// SessionEventsResponse is the full event trail for one session.
type SessionEventsResponse struct {
	MessageID string      `json:"message_id"`
	Events    []EventView `json:"events"`
}

// RetryAcceptedResponse acknowledges an initiated retry.
type RetryAcceptedResponse struct {
	RetryMessageID  string `json:"retry_message_id"`
	SourceMessageID string `json:"source_message_id"`
	State           string `json:"state" example:"IN_PROGRESS"`
}

func sessionView(s domain.MessageAuditSession) SessionView {
	return SessionView{
		MessageID:             s.MessageID,
		UserID:                s.UserID,
		ChatID:                s.ChatID,
		MessageText:           s.MessageText,
		ParseMode:             s.ParseMode,
		DisableWebPagePreview: s.DisableWebPagePreview,
		FinalStatus:           s.FinalStatus,
		ErrorCode:             s.ErrorCode,
		ErrorMessage:          s.ErrorMessage,
		TelegramChatID:        s.TelegramChatID,
		TelegramMessageID:     s.TelegramMessageID,
		StartedAt:             s.StartedAt,
		CompletedAt:           s.CompletedAt,
		RetryOfMessageID:      s.RetryOfMessageID,
	}
}

func eventView(e domain.MessageAuditEvent) EventView {
	return EventView{
		Stage:        string(e.Stage),
		EventStatus:  string(e.EventStatus),
		Payload:      e.Payload,
		ErrorCode:    e.ErrorCode,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
	}
}

// parseSessionQuery builds the service query from the request's query string.
// Malformed filter values are reported as bad_request rather than ignored.
func parseSessionQuery(c *gin.Context) (services.SessionQuery, string) {
	q := services.SessionQuery{
		FinalStatus: c.Query("status"),
		MessageID:   c.Query("message_id"),
		ErrorOnly:   c.Query("error_only") == "true",
		Page:        utils.AtoiDefault(c.Query("page"), 0),
		Size:        utils.AtoiDefault(c.Query("size"), 0),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := utils.ParseInt64(raw)
		if err != nil {
			return q, "user_id must be an integer"
		}
		q.UserID = &id
	}
	for param, dst := range map[string]**time.Time{"from": &q.DateFrom, "to": &q.DateTo} {
		if raw := c.Query(param); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return q, param + " must be an RFC 3339 timestamp"
			}
			*dst = &ts
		}
	}
	return q, ""
}

// ListAuditSessions godoc
// @ID          listAuditSessions
// @Summary     List message delivery sessions
// @Description Returns a paginated listing of audit sessions, newest first,
// @Description with optional filters on user, final status, time range, and
// @Description error presence.
// @Tags        Audit
// @Produce     json
// @Security    AdminToken
// @Param       user_id     query  int     false "Filter by Telegram user id"
// @Param       status      query  string  false "Filter by final status (SENT, FAILED)"
// @Param       from        query  string  false "Sessions started at or after (RFC 3339)"
// @Param       to          query  string  false "Sessions started before (RFC 3339)"
// @Param       error_only  query  bool    false "Only sessions with an error code"
// @Param       message_id  query  string  false "Exact session business key"
// @Param       page        query  int     false "Zero-based page"  default(0)
// @Param       size        query  int     false "Page size"        default(20) maximum(100)
// @Success     200  {object}  handlers.ListSessionsResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /admin/message-audit/sessions [get]
func (h *Handlers) ListAuditSessions(c *gin.Context) {
	q, badParam := parseSessionQuery(c)
	if badParam != "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, badParam)
		return
	}

	page, err := h.audit.FindSessions(c.Request.Context(), q)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	views := make([]SessionView, 0, len(page.Sessions))
	for _, s := range page.Sessions {
		views = append(views, sessionView(s))
	}
	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions: views,
		Pagination: Pagination{
			Page:       page.Page,
			Size:       page.Size,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// GetAuditSession godoc
// @ID          getAuditSession
// @Summary     Fetch one delivery session
// @Tags        Audit
// @Produce     json
// @Security    AdminToken
// @Param       messageId  path  string  true  "Session business key (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SessionView
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/message-audit/sessions/{messageId} [get]
func (h *Handlers) GetAuditSession(c *gin.Context) {
	messageID := c.Param("messageId")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	session, err := h.audit.GetSession(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sessionView(*session))
}

// GetAuditSessionEvents godoc
// @ID          getAuditSessionEvents
// @Summary     Fetch the stage trail of a delivery session
// @Description Events are returned in chronological order, from
// @Description REQUEST_PREPARED through the terminal COMPLETED or FAILED.
// @Tags        Audit
// @Produce     json
// @Security    AdminToken
// @Param       messageId  path  string  true  "Session business key (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SessionEventsResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/message-audit/sessions/{messageId}/events [get]
func (h *Handlers) GetAuditSessionEvents(c *gin.Context) {
	messageID := c.Param("messageId")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	events, err := h.audit.GetEvents(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView(e))
	}
	ok(c, http.StatusOK, SessionEventsResponse{MessageID: messageID, Events: views})
}

// RetryAuditSession godoc
// @ID          retryAuditSession
// @Summary     Retry a failed delivery
// @Description Starts an asynchronous re-send of a FAILED session and answers
// @Description immediately with 202. The retry runs under a fresh session id;
// @Description poll the audit listing for its outcome. At most one retry per
// @Description source can run or succeed.
// @Tags        Audit
// @Produce     json
// @Security    AdminToken
// @Param       messageId  path  string  true  "Source session business key (UUID)"  format(uuid)
// @Success     202  {object}  handlers.RetryAcceptedResponse  "Retry initiated"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not FAILED, or a retry already exists"
// @Router      /admin/message-audit/sessions/{messageId}/retry [post]
func (h *Handlers) RetryAuditSession(c *gin.Context) {
	messageID := c.Param("messageId")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	init, err := h.retry.InitiateRetry(c.Request.Context(), messageID)
	if err != nil {
		var rerr *services.RetryNotAllowedError
		if errors.As(err, &rerr) {
			if rerr.NotFound() {
				fail(c, http.StatusNotFound, ErrCodeNotFound, rerr.Message)
				return
			}
			fail(c, http.StatusConflict, ErrCodeRetryConflict, rerr.Message)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusAccepted, RetryAcceptedResponse{
		RetryMessageID:  init.RetryMessageID,
		SourceMessageID: init.SourceMessageID,
		State:           init.State,
	})
}
