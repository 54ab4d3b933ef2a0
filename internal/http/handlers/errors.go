// Package handlers defines the HTTP-layer error codes used across the API.
//
// Codes are lowercase snake_case and stable: clients branch on them
// programmatically while the message field stays free to change. Generic
// codes mirror HTTP status semantics; domain codes cover business failures a
// status alone cannot convey (a delivery that exhausted its retries, a retry
// initiation that lost an idempotency check).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "retry_conflict",
//	  "message": "a retry is already running or has succeeded"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeSendFailed    = "send_failed"
	ErrCodeRetryConflict = "retry_conflict"
	ErrCodeListFailed    = "list_failed"
)
