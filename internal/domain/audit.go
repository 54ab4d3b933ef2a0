// Package domain defines the persistence models for the message-audit trail.
// These types are mapped with GORM and form the core data layer of the
// delivery engine: one session row per logical delivery attempt chain, and
// append-only event rows per stage transition within that session.
package domain

import "time"

// AuditStage identifies a stage transition inside a delivery session.
type AuditStage string

// Stages recorded for a session, in the order they may occur.
const (
	StageRequestPrepared  AuditStage = "REQUEST_PREPARED"
	StageAPICallStarted   AuditStage = "API_CALL_STARTED"
	StageAPICallSucceeded AuditStage = "API_CALL_SUCCEEDED"
	StageAPICallFailed    AuditStage = "API_CALL_FAILED"
	StageCompleted        AuditStage = "COMPLETED"
	StageFailed           AuditStage = "FAILED"
)

// AuditEventStatus qualifies a stage transition.
type AuditEventStatus string

// Event statuses. RETRY marks a failed attempt that will be re-tried.
const (
	EventStarted   AuditEventStatus = "STARTED"
	EventSucceeded AuditEventStatus = "SUCCEEDED"
	EventFailed    AuditEventStatus = "FAILED"
	EventRetry     AuditEventStatus = "RETRY"
)

// Terminal session statuses. A session with neither is still in flight.
const (
	FinalStatusSent   = "SENT"
	FinalStatusFailed = "FAILED"
)

// MessageAuditSession is one full delivery attempt chain (an original send or
// a single manual retry), keyed by the business MessageID. The business key is
// distinct from any Telegram-assigned message id, which is only recorded on
// success.
//
// Invariants:
//   - FinalStatus is set at most once and never reverted.
//   - CompletedAt is non-nil iff FinalStatus is non-nil.
//   - TelegramChatID/TelegramMessageID are set only on SENT.
//   - ErrorCode/ErrorMessage are set only on FAILED.
type MessageAuditSession struct {
	ID                    uint64     `json:"-"                      gorm:"primaryKey;autoIncrement"`
	MessageID             string     `json:"message_id"             gorm:"type:char(36);not null;uniqueIndex:ux_audit_message_id"`
	UserID                int64      `json:"user_id"                gorm:"not null;index:idx_audit_user_started,priority:1"`
	ChatID                *int64     `json:"chat_id,omitempty"`
	MessageText           string     `json:"message_text"           gorm:"type:text;not null"`
	ParseMode             string     `json:"parse_mode"             gorm:"type:varchar(16)"`
	DisableWebPagePreview bool       `json:"disable_web_page_preview" gorm:"not null"`
	RequestPayload        string     `json:"request_payload,omitempty" gorm:"type:text"`
	FinalStatus           *string    `json:"final_status"           gorm:"type:varchar(16);index"`
	ErrorCode             *string    `json:"error_code,omitempty"   gorm:"type:varchar(64)"`
	ErrorMessage          *string    `json:"error_message,omitempty" gorm:"type:text"`
	TelegramChatID        *int64     `json:"telegram_chat_id,omitempty"`
	TelegramMessageID     *int64     `json:"telegram_message_id,omitempty"`
	StartedAt             time.Time  `json:"started_at"             gorm:"not null;index:idx_audit_user_started,priority:2"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	ExpiresAt             time.Time  `json:"expires_at"             gorm:"not null;index"`
	RetryOfMessageID      *string    `json:"retry_of_message_id,omitempty" gorm:"type:char(36);index"`
}

// TableName returns the database table name for MessageAuditSession.
func (MessageAuditSession) TableName() string { return "message_audit_sessions" }

// Terminal reports whether the session has reached a final status.
func (s *MessageAuditSession) Terminal() bool { return s.FinalStatus != nil }

// Failed reports whether the session finished as FAILED.
func (s *MessageAuditSession) Failed() bool {
	return s.FinalStatus != nil && *s.FinalStatus == FinalStatusFailed
}

// MessageAuditEvent is one immutable audit record of a stage transition within
// a session's lifetime. Events are created, never mutated or deleted; they are
// ordered by CreatedAt (then ID, for same-timestamp inserts).
type MessageAuditEvent struct {
	ID           uint64           `json:"-"                       gorm:"primaryKey;autoIncrement"`
	SessionID    uint64           `json:"-"                       gorm:"not null;index"`
	MessageID    string           `json:"message_id"              gorm:"type:char(36);not null;index:idx_audit_events_msg_created,priority:1"`
	Stage        AuditStage       `json:"stage"                   gorm:"type:varchar(32);not null"`
	EventStatus  AuditEventStatus `json:"event_status"            gorm:"type:varchar(16);not null"`
	Payload      string           `json:"payload,omitempty"       gorm:"type:text"`
	ErrorCode    *string          `json:"error_code,omitempty"    gorm:"type:varchar(64)"`
	ErrorMessage *string          `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time        `json:"created_at"              gorm:"index:idx_audit_events_msg_created,priority:2"`

	// Session is the owning delivery chain. Events are cascade-deleted when
	// their session is removed by the retention sweeper.
	Session MessageAuditSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for MessageAuditEvent.
func (MessageAuditEvent) TableName() string { return "message_audit_events" }
