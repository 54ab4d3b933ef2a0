// Message delivery HTTP handler.
//
// POST /messages/send accepts a delivery request, runs it through the retry
// engine synchronously, and answers with the transport identifiers on success
// or the terminal error code on failure. The handler is transport-thin:
// validation and normalization here, everything else in the service layer.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stickerart/sticker-gallery-backend/internal/http/middleware"
	"github.com/stickerart/sticker-gallery-backend/internal/services"
	"github.com/stickerart/sticker-gallery-backend/internal/stickerbot"
)

// maxMessageRunes caps the text length accepted at the edge; Telegram rejects
// anything over 4096 characters anyway.
const maxMessageRunes = 4096

// SendMessageRequest is the JSON payload for dispatching a message.
type SendMessageRequest struct {
	// UserID is the Telegram user the message is addressed to.
	UserID int64 `json:"user_id" binding:"required" example:"123456789"`
	// ChatID overrides the destination chat; defaults to the user's chat.
	ChatID *int64 `json:"chat_id,omitempty" example:"-1001234567890"`
	// Text is the message body. Must be non-empty after trimming.
	Text string `json:"text" binding:"required,min=1" example:"Your sticker pack was published!"`
	// ParseMode is one of plain, markdown, html. Defaults to plain.
	ParseMode string `json:"parse_mode,omitempty" example:"markdown"`
	// DisableWebPagePreview suppresses link previews in the sent message.
	DisableWebPagePreview bool `json:"disable_web_page_preview,omitempty"`
}

// SendMessageResponse reports a confirmed delivery.
type SendMessageResponse struct {
	// MessageID is the audit session business key for this delivery.
	MessageID string `json:"message_id" example:"6f1e0d26-25b4-4c5a-9d4a-2ab6a3a6f001"`
	Status    string `json:"status" example:"sent"`
	// ChatID and TelegramMessageID identify the sent Telegram message.
	ChatID            int64 `json:"chat_id" example:"123456789"`
	TelegramMessageID int64 `json:"telegram_message_id" example:"5501"`
}

// SendFailureResponse reports a delivery that reached a terminal failure.
// The audit trail under /admin/message-audit carries the per-attempt detail.
type SendFailureResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code" example:"send_failed"`
	// MessageID locates the FAILED audit session for this delivery.
	MessageID string `json:"message_id" example:"6f1e0d26-25b4-4c5a-9d4a-2ab6a3a6f001"`
	// ErrorCode is the delivery taxonomy code (HTTP_5XX, NETWORK_ERROR, ...).
	ErrorCode string `json:"error_code" example:"HTTP_5XX"`
	Message   string `json:"message"`
}

// normalizeParseMode validates and defaults the parse mode.
func normalizeParseMode(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return stickerbot.ParseModePlain, true
	case stickerbot.ParseModePlain:
		return stickerbot.ParseModePlain, true
	case stickerbot.ParseModeMarkdown:
		return stickerbot.ParseModeMarkdown, true
	case stickerbot.ParseModeHTML:
		return stickerbot.ParseModeHTML, true
	default:
		return "", false
	}
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message to a Telegram user
// @Description Dispatches a message through the sticker bot API with bounded
// @Description retries on transient failures. The response carries the audit
// @Description session id for later inspection under /admin/message-audit.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.SendMessageRequest  true  "Delivery request"
// @Success     200  {object}  handlers.SendMessageResponse   "Delivery confirmed"
// @Failure     400  {object}  handlers.ErrorResponse         "Bad request"
// @Failure     502  {object}  handlers.SendFailureResponse   "Delivery failed"
// @Router      /messages/send [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id and text are required")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text must not be blank")
		return
	}
	if utf8.RuneCountInString(text) > maxMessageRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text too long")
		return
	}
	parseMode, valid := normalizeParseMode(req.ParseMode)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "parse_mode must be plain, markdown, or html")
		return
	}

	// Mint the audit business key here so it can be returned to the caller
	// even though the delivery outcome is decided in the service.
	messageID := uuid.NewString()

	resp, err := h.sender.Send(c.Request.Context(), stickerbot.SendMessageRequest{
		UserID:                 req.UserID,
		ChatID:                 req.ChatID,
		Text:                   text,
		ParseMode:              parseMode,
		DisableWebPagePreview:  req.DisableWebPagePreview,
		AuditMessageIDOverride: messageID,
	})
	if err != nil {
		var derr *services.DeliveryError
		if errors.As(err, &derr) {
			status := http.StatusBadGateway
			if derr.Code == services.ErrorCodeConfig {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, SendFailureResponse{
				RequestID: middleware.RequestIDFrom(c),
				Code:      ErrCodeSendFailed,
				MessageID: messageID,
				ErrorCode: derr.Code,
				Message:   derr.Message,
			})
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, SendMessageResponse{
		MessageID:         messageID,
		Status:            resp.Status,
		ChatID:            resp.ChatID,
		TelegramMessageID: resp.MessageID,
	})
}
