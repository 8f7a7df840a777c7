// Package retry decides whether a failed gateway call is re-issued and after
// what delay. The decision is a pure function of its inputs: no clock, no
// jitter, no hidden state. Callers that want jitter layer it on top.
package retry

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/zaguanlabs/zaguan-go/pkg/api"
)

// DefaultRetryableStatusCodes are retried when no explicit list is configured.
var DefaultRetryableStatusCodes = []int{
	http.StatusRequestTimeout,      // 408
	http.StatusTooManyRequests,     // 429
	http.StatusInternalServerError, // 500
	http.StatusBadGateway,          // 502
	http.StatusServiceUnavailable,  // 503
	http.StatusGatewayTimeout,      // 504
}

// Config holds retry settings. Retries are opt-in: MaxRetries defaults to 0.
type Config struct {
	MaxRetries           int           `yaml:"max_retries"`
	InitialDelay         time.Duration `yaml:"initial_delay"`
	MaxDelay             time.Duration `yaml:"max_delay"`
	BackoffMultiplier    float64       `yaml:"backoff_multiplier"`
	RetryableStatusCodes []int         `yaml:"retryable_status_codes"`
}

// Decision is the outcome of ShouldRetry.
type Decision struct {
	Retry bool
	Delay time.Duration
	// Reason is a short label for logs and metrics ("status_503", "network",
	// "retry_after").
	Reason string
}

// DefaultConfig returns the defaults: no retries, 1s initial delay doubling
// up to 10s, and DefaultRetryableStatusCodes.
func DefaultConfig() Config {
	return Config{
		MaxRetries:           0,
		InitialDelay:         time.Second,
		MaxDelay:             10 * time.Second,
		BackoffMultiplier:    2,
		RetryableStatusCodes: slices.Clone(DefaultRetryableStatusCodes),
	}
}

// Normalize fills zero-valued delay, multiplier and status fields from
// DefaultConfig. MaxRetries is left as is.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	if len(c.RetryableStatusCodes) == 0 {
		c.RetryableStatusCodes = d.RetryableStatusCodes
	} else {
		c.RetryableStatusCodes = slices.Clone(c.RetryableStatusCodes)
	}
	return c
}

// Validate reports settings that cannot produce a sensible schedule.
func (c Config) Validate() error {
	var errs []error
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries))
	}
	if c.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("initial_delay must be >= 0, got %s", c.InitialDelay))
	}
	if c.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("max_delay must be >= 0, got %s", c.MaxDelay))
	}
	if c.MaxDelay > 0 && c.InitialDelay > c.MaxDelay {
		errs = append(errs, fmt.Errorf("initial_delay %s exceeds max_delay %s", c.InitialDelay, c.MaxDelay))
	}
	if c.BackoffMultiplier < 0 || (c.BackoffMultiplier > 0 && c.BackoffMultiplier < 1) {
		errs = append(errs, fmt.Errorf("backoff_multiplier must be >= 1, got %g", c.BackoffMultiplier))
	}
	for _, code := range c.RetryableStatusCodes {
		if code < 100 || code > 599 {
			errs = append(errs, fmt.Errorf("retryable_status_codes: invalid status %d", code))
		}
	}
	return errors.Join(errs...)
}

// Backoff returns the computed delay before retry number attempt (0-indexed):
// min(MaxDelay, InitialDelay * BackoffMultiplier^attempt).
func (c Config) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if c.MaxDelay > 0 && (d > float64(c.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d)) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// ShouldRetry decides whether the call that just failed with err on the
// given attempt (0 for the first try) is re-issued.
//
// Non-idempotent calls are never retried, nor are cancellations and
// timeouts. Transport failures are retried up to MaxRetries; status errors
// only when their code is in RetryableStatusCodes. A 429 Retry-After value
// replaces the computed backoff.
func (c Config) ShouldRetry(attempt int, idempotent bool, err error) Decision {
	if err == nil || !idempotent || attempt >= c.MaxRetries {
		return Decision{}
	}

	var ce *api.ConnectionError
	if errors.As(err, &ce) {
		if ce.Cancelled() {
			return Decision{}
		}
		return Decision{Retry: true, Delay: c.Backoff(attempt), Reason: "network"}
	}

	status := api.StatusCodeOf(err)
	if status == 0 || !slices.Contains(c.retryableCodes(), status) {
		return Decision{}
	}

	var rl *api.RateLimitError
	if errors.As(err, &rl) {
		if ra := rl.RetryAfter(); ra != nil {
			return Decision{Retry: true, Delay: *ra, Reason: "retry_after"}
		}
	}
	return Decision{Retry: true, Delay: c.Backoff(attempt), Reason: fmt.Sprintf("status_%d", status)}
}

func (c Config) retryableCodes() []int {
	if len(c.RetryableStatusCodes) == 0 {
		return DefaultRetryableStatusCodes
	}
	return c.RetryableStatusCodes
}

// IsIdempotentMethod is the default eligibility rule: only GET requests are
// retried unless the caller declares otherwise.
func IsIdempotentMethod(method string) bool {
	return method == http.MethodGet
}
