package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BandAccessDeniedType is the error.type marker that turns a 403 into a
// BandAccessDeniedError.
const BandAccessDeniedType = "band_access_denied"

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-Id"

// Classify turns a non-2xx response into one of the taxonomy's error values.
// It never fails: an unparsable body degrades to a message built from the
// status code. now resolves an HTTP-date Retry-After into a delay. Classify
// is pure and safe for concurrent use.
func Classify(statusCode int, header http.Header, body []byte, now time.Time) error {
	parsed, _ := ParseErrorBody(body)

	base := APIError{
		HTTPStatus: statusCode,
		Message:    parsed.Message,
		Type:       parsed.Type,
		Code:       parsed.Code,
		RequestID:  strings.TrimSpace(header.Get(RequestIDHeader)),
	}
	if base.Message == "" {
		base.Message = genericMessage(statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return &AuthenticationError{APIError: base}

	case http.StatusPaymentRequired:
		return &InsufficientCreditsError{
			APIError:         base,
			CreditsRequired:  parsed.CreditsRequired,
			CreditsRemaining: parsed.CreditsRemaining,
			ResetDate:        parsed.ResetDate,
		}

	case http.StatusForbidden:
		if parsed.Type == BandAccessDeniedType {
			return &BandAccessDeniedError{
				APIError:     base,
				Band:         parsed.Band,
				RequiredTier: parsed.RequiredTier,
				CurrentTier:  parsed.CurrentTier,
			}
		}
		return &base

	case http.StatusTooManyRequests:
		return &RateLimitError{
			APIError:        base,
			RetryAfterDelay: ParseRetryAfter(header.Get("Retry-After"), now),
		}

	default:
		return &base
	}
}

// ClassifyTransportError wraps a failure that produced no response at all
// (DNS, connect, reset) as a network ConnectionError.
func ClassifyTransportError(err error, requestID string) *ConnectionError {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce
	}
	return &ConnectionError{Reason: ReasonNetwork, RequestID: requestID, Err: err}
}

// ParseRetryAfter reads a Retry-After value given either as delay seconds or
// as an HTTP date relative to now. Missing or invalid values return 0.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}
