package transport

import (
	"context"

	"github.com/google/uuid"
)

// RequestIDHeader is the correlation header sent with every request.
const RequestIDHeader = "X-Request-Id"

// NewRequestID returns a fresh correlation id (a random UUID).
func NewRequestID() string {
	return uuid.NewString()
}

// RequestID returns middleware that makes sure every request carries a
// correlation id. A request that already has one, either in RequestID or in
// its X-Request-Id header, keeps it.
func RequestID() Middleware {
	return func(next Transport) Transport {
		return Func(func(ctx context.Context, req *Request) (*Response, error) {
			if req.RequestID == "" {
				req.RequestID = req.Header.Get(RequestIDHeader)
			}
			if req.RequestID == "" {
				req.RequestID = NewRequestID()
			}
			return next.Send(ctx, req)
		})
	}
}
