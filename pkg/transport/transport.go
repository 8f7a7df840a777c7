package transport

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Request describes one attempt of a gateway call. It is built fresh for
// every attempt and is not mutated once passed to Send.
type Request struct {
	Method string
	// URL is absolute: base URL joined with the endpoint path.
	URL    string
	Header http.Header
	Body   []byte
	// ContentType defaults to application/json when empty and Body is set.
	ContentType string
	// Timeout is the effective call timeout. The caller already enforces it
	// through the context given to Send; transports only report it.
	Timeout   time.Duration
	RequestID string
}

// Response is what the transport obtained: a status, headers and an unread
// body. Closing Body releases the underlying connection.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Transport sends a request. An error means no response was obtained; any
// status code, including 4xx and 5xx, is returned as a Response.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Func is an adapter that allows using an ordinary function as a Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
