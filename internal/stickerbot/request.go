package stickerbot

// Parse modes accepted by the StickerBot API for rendering message text.
const (
	ParseModePlain    = "plain"
	ParseModeMarkdown = "markdown"
	ParseModeHTML     = "html"
)

// StatusSent is the only response status the API reports for a delivered
// message; any other value means the remote system acknowledged the call but
// did not deliver.
const StatusSent = "sent"

// SendMessageRequest is the value object for one logical send. It is
// immutable once constructed: retries build a fresh request from the audited
// snapshot rather than mutating the original.
//
// AuditMessageIDOverride and RetryOfMessageID never cross the wire; they are
// bookkeeping for the audit trail. Callers may pre-mint the session's business
// key through the override: the HTTP handler does so to echo the id in its
// response, and a manual retry does so to pin the retry session's key while
// back-referencing the failed source session.
type SendMessageRequest struct {
	UserID                int64  `json:"user_id"`
	ChatID                *int64 `json:"chat_id,omitempty"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`

	AuditMessageIDOverride string `json:"-"`
	RetryOfMessageID       string `json:"-"`
}

// SendMessageResponse is the success payload of the StickerBot API: the
// transport-assigned chat and message identifiers plus a status string.
type SendMessageResponse struct {
	Status    string `json:"status"`
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
}

// Sent reports whether the API confirmed delivery.
func (r *SendMessageResponse) Sent() bool { return r.Status == StatusSent }
