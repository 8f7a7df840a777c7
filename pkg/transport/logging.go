package transport

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that emits a structured log entry for each
// attempt: method, URL, request ID, status and duration. Successful attempts
// log at debug level so a library caller's logs stay quiet by default;
// transport failures log at warn.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Transport) Transport {
		return Func(func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()

			resp, err := next.Send(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", req.RequestID),
				slog.String("method", req.Method),
				slog.String("url", req.URL),
				slog.Duration("duration", time.Since(start)),
			}
			if req.Timeout > 0 {
				attrs = append(attrs, slog.Duration("timeout", req.Timeout))
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelWarn, "gateway request failed", attrs...)
			} else {
				attrs = append(attrs, slog.Int("status", resp.StatusCode))
				logger.LogAttrs(ctx, slog.LevelDebug, "gateway response", attrs...)
			}

			return resp, err
		})
	}
}
