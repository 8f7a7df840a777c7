package transport

import (
	"context"
	"fmt"
)

// Recovery returns middleware that turns a panic in the wrapped transport
// into an error, so a faulty custom Transport fails the call instead of the
// program.
func Recovery() Middleware {
	return func(next Transport) Transport {
		return Func(func(ctx context.Context, req *Request) (resp *Response, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					retErr = fmt.Errorf("transport panic: %v", r)
				}
			}()
			return next.Send(ctx, req)
		})
	}
}
