package zaguan

import (
	"net/http"
	"net/url"
	"time"

	"github.com/zaguanlabs/zaguan-go/pkg/retry"
)

// Request is one logical gateway call.
type Request struct {
	Method string
	// Path is appended to the client base URL, e.g. "/v1/models".
	Path  string
	Query url.Values
	// Body is JSON-encoded when RawBody is nil.
	Body    any
	RawBody []byte
	// ContentType of RawBody. JSON bodies use application/json.
	ContentType string
	// Endpoint labels metrics and logs; defaults to Path.
	Endpoint string
	Options  CallOptions
}

// CallOptions tune a single call.
type CallOptions struct {
	// Timeout overrides the client timeout when positive.
	Timeout time.Duration
	// RequestID is the correlation id; generated when empty.
	RequestID string
	// Idempotent overrides the GET-only default for retry eligibility.
	Idempotent *bool
	// Retry overrides the client retry policy.
	Retry *retry.Config
	// Header holds extra request headers.
	Header http.Header
}

// CallOption sets a field of CallOptions.
type CallOption func(*CallOptions)

// WithCallTimeout bounds this call, retries and stream consumption included.
func WithCallTimeout(d time.Duration) CallOption {
	return func(o *CallOptions) { o.Timeout = d }
}

// WithRequestID sets the X-Request-Id sent with every attempt of the call.
func WithRequestID(id string) CallOption {
	return func(o *CallOptions) { o.RequestID = id }
}

// WithIdempotent declares whether the call is safe to re-issue.
func WithIdempotent(ok bool) CallOption {
	return func(o *CallOptions) { o.Idempotent = &ok }
}

// WithCallRetry replaces the retry policy for this call.
func WithCallRetry(cfg retry.Config) CallOption {
	return func(o *CallOptions) {
		n := cfg.Normalize()
		o.Retry = &n
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) CallOption {
	return func(o *CallOptions) {
		if o.Header == nil {
			o.Header = http.Header{}
		}
		o.Header.Add(key, value)
	}
}

func newCallOptions(opts []CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (r *Request) endpoint() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	return r.Path
}
