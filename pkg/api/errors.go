package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind names one member of the closed error taxonomy. Callers branch on
// the kind (see KindOf) instead of parsing message text.
type ErrorKind string

const (
	KindConnection          ErrorKind = "connection_error"
	KindAuthentication      ErrorKind = "authentication_error"
	KindInsufficientCredits ErrorKind = "insufficient_credits"
	KindRateLimit           ErrorKind = "rate_limit_error"
	KindBandAccessDenied    ErrorKind = "band_access_denied"
	KindAPI                 ErrorKind = "api_error"
)

// ConnectionReason explains why a request produced no usable response.
type ConnectionReason string

const (
	ReasonNetwork   ConnectionReason = "network"
	ReasonTimeout   ConnectionReason = "timeout"
	ReasonCancelled ConnectionReason = "cancelled"
)

// APIError is a non-2xx gateway response. It is the generic kind on its own
// and the common part embedded by every status-specific kind.
type APIError struct {
	HTTPStatus int    `json:"status"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Code       string `json:"code,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("zaguan: HTTP %d: %s", e.HTTPStatus, e.Message)
	if e.RequestID != "" {
		msg += " (request_id: " + e.RequestID + ")"
	}
	return msg
}

// StatusCode returns the HTTP status of the failed response.
func (e *APIError) StatusCode() int { return e.HTTPStatus }

// CorrelationID returns the X-Request-Id echoed by the gateway, if any.
func (e *APIError) CorrelationID() string { return e.RequestID }

// Kind returns KindAPI.
func (e *APIError) Kind() ErrorKind { return KindAPI }

// AuthenticationError is returned for 401 responses.
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Kind() ErrorKind { return KindAuthentication }
func (e *AuthenticationError) Unwrap() error   { return &e.APIError }

// InsufficientCreditsError is returned for 402 responses. The credit figures
// are optional; nil means the gateway did not report them.
type InsufficientCreditsError struct {
	APIError
	CreditsRequired  *int   `json:"credits_required,omitempty"`
	CreditsRemaining *int   `json:"credits_remaining,omitempty"`
	ResetDate        string `json:"reset_date,omitempty"`
}

func (e *InsufficientCreditsError) Kind() ErrorKind { return KindInsufficientCredits }
func (e *InsufficientCreditsError) Unwrap() error   { return &e.APIError }

// RateLimitError is returned for 429 responses.
type RateLimitError struct {
	APIError
	// RetryAfterDelay is the parsed Retry-After header; zero when absent.
	RetryAfterDelay time.Duration `json:"retry_after,omitempty"`
}

func (e *RateLimitError) Kind() ErrorKind { return KindRateLimit }
func (e *RateLimitError) Unwrap() error   { return &e.APIError }

// RetryAfter returns the server-requested delay, or nil if none was sent.
func (e *RateLimitError) RetryAfter() *time.Duration {
	if e.RetryAfterDelay <= 0 {
		return nil
	}
	d := e.RetryAfterDelay
	return &d
}

// BandAccessDeniedError is returned for 403 responses whose error type is
// "band_access_denied": the key's tier does not include the model's band.
type BandAccessDeniedError struct {
	APIError
	Band         string `json:"band,omitempty"`
	RequiredTier string `json:"required_tier,omitempty"`
	CurrentTier  string `json:"current_tier,omitempty"`
}

func (e *BandAccessDeniedError) Kind() ErrorKind { return KindBandAccessDenied }
func (e *BandAccessDeniedError) Unwrap() error   { return &e.APIError }

// ConnectionError means no usable response was received: the call was
// cancelled, timed out, or the transport failed.
type ConnectionError struct {
	Reason    ConnectionReason
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonTimeout:
		msg = "zaguan: request timed out"
	case ReasonCancelled:
		msg = "zaguan: request cancelled"
	default:
		msg = "zaguan: connection error"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RequestID != "" {
		msg += " (request_id: " + e.RequestID + ")"
	}
	return msg
}

func (e *ConnectionError) Unwrap() error         { return e.Err }
func (e *ConnectionError) Kind() ErrorKind       { return KindConnection }
func (e *ConnectionError) CorrelationID() string { return e.RequestID }

// Cancelled reports whether the call was aborted by a timeout or by the
// caller, as opposed to failing in the network.
func (e *ConnectionError) Cancelled() bool {
	return e.Reason == ReasonTimeout || e.Reason == ReasonCancelled
}

// Timeout reports whether the per-call or client timeout fired.
func (e *ConnectionError) Timeout() bool {
	return e.Reason == ReasonTimeout
}

// KindOf returns the taxonomy kind of err, or "" if err did not come from
// this SDK.
func KindOf(err error) ErrorKind {
	var k interface{ Kind() ErrorKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// CorrelationIDOf returns the request id carried by err, or "".
func CorrelationIDOf(err error) string {
	var c interface{ CorrelationID() string }
	if errors.As(err, &c) {
		return c.CorrelationID()
	}
	return ""
}

// IsCancelled reports whether err is a timeout or caller cancellation.
func IsCancelled(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Cancelled()
}

func genericMessage(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "unknown status"
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}
