// Package services implements the delivery engine: the retry/backoff
// controller, the best-effort audit recorder, the manual-retry coordinator,
// and the read-only audit query façade. This file centralizes the error
// taxonomy shared by those components so that callers (HTTP handlers, other
// services) can classify failures consistently.
package services

import "fmt"

// Terminal delivery error codes recorded on the audit session and surfaced to
// callers. The retry controller is the sole authority on which of these are
// reached after retries and which fail immediately.
const (
	// ErrorCodeConfig: delivery endpoint or credential not configured.
	// Never retried.
	ErrorCodeConfig = "CONFIG_ERROR"
	// ErrorCodeEmptyResponse: the API answered 2xx with no usable body.
	// Not retried.
	ErrorCodeEmptyResponse = "EMPTY_RESPONSE"
	// ErrorCodeUnexpectedStatus: the API acknowledged the call but reported a
	// status other than "sent". Retrying would not help.
	ErrorCodeUnexpectedStatus = "UNEXPECTED_STATUS"
	// ErrorCodeHTTP4xx: a 4xx response. 429/408 are retried, the rest are
	// terminal caller errors.
	ErrorCodeHTTP4xx = "HTTP_4XX"
	// ErrorCodeHTTP5xx: a 5xx response. Retried.
	ErrorCodeHTTP5xx = "HTTP_5XX"
	// ErrorCodeNetwork: no HTTP response at all (DNS, connect, timeout).
	// Retried.
	ErrorCodeNetwork = "NETWORK_ERROR"
	// ErrorCodeGeneric: fallback for unclassified send failures.
	ErrorCodeGeneric = "MESSAGE_SEND_ERROR"
)

// DeliveryError is the single terminal error a caller of Send observes after
// all retries are exhausted (or after an immediately-terminal classification).
// Intermediate retries are invisible to the caller except through the audit
// trail.
type DeliveryError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %s", e.Code, e.Message)
}

// Rejection codes for manual retry initiation. NOT_FOUND maps to a 404 at the
// HTTP layer; all others map to a 409 conflict.
const (
	RetryRejectedNotFound   = "NOT_FOUND"
	RetryRejectedNotFailed  = "NOT_FAILED"
	RetryRejectedExists     = "RETRY_EXISTS"
	RetryRejectedInProgress = "RETRY_IN_PROGRESS"
)

// RetryNotAllowedError is returned by RetryService.InitiateRetry when a retry
// is rejected before any delivery attempt is made.
type RetryNotAllowedError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RetryNotAllowedError) Error() string {
	return fmt.Sprintf("retry not allowed (%s): %s", e.Code, e.Message)
}

// NotFound reports whether the rejection should surface as a missing
// resource rather than a conflict.
func (e *RetryNotAllowedError) NotFound() bool { return e.Code == RetryRejectedNotFound }
