package zaguan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zaguanlabs/zaguan-go/internal/json"
	"github.com/zaguanlabs/zaguan-go/pkg/api"
	"github.com/zaguanlabs/zaguan-go/pkg/cancel"
	"github.com/zaguanlabs/zaguan-go/pkg/debug"
	"github.com/zaguanlabs/zaguan-go/pkg/observability"
	"github.com/zaguanlabs/zaguan-go/pkg/retry"
	"github.com/zaguanlabs/zaguan-go/pkg/transport"
)

// maxErrorBody caps how much of a non-2xx body is read for classification.
const maxErrorBody = 1 << 20

// retryState is owned by one logical call.
type retryState struct {
	attempt int
	waited  time.Duration
	lastErr error
}

// call is the per-call state shared by the attempts of one request.
type call struct {
	req        *Request
	requestID  string
	body       []byte
	ctype      string
	policy     retry.Config
	idempotent bool
	sig        *cancel.Signal
	state      retryState
}

// Do sends req and decodes a 2xx JSON body into out, which may be nil. A
// *[]byte out receives the raw body. Failures are returned as one of the api
// error kinds.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	resp, cl, err := c.send(ctx, req, false)
	if err != nil {
		return err
	}
	defer cl.sig.Release()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(c.readError(cl, err))
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(&api.APIError{
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("decoding response: %v", err),
			Type:       "invalid_response",
			RequestID:  cl.requestID,
		})
	}
	return nil
}

// send runs the attempt loop until a 2xx response is obtained or the retry
// policy gives up. On success the caller owns the response body and the
// returned call's signal.
func (c *Client) send(ctx context.Context, req *Request, stream bool) (*transport.Response, *call, error) {
	cl, err := c.newCall(ctx, req)
	if err != nil {
		return nil, nil, c.fail(err)
	}

	for {
		if err := cl.sig.Check(cl.requestID); err != nil {
			cl.sig.Release()
			return nil, nil, c.fail(err)
		}

		if cl.body != nil && debug.TraceIsEnabled("http") {
			debug.Trace("http", "request body", "request_id", cl.requestID, "attempt", cl.state.attempt, "body", debug.Truncate(string(cl.body), 4096))
		}

		start := c.clock.Now()
		resp, err := c.transport.Send(cl.sig.Context(), c.buildRequest(cl, stream))

		var callErr error
		switch {
		case err != nil:
			observability.ObserveAttempt(req.Method, req.endpoint(), 0, c.clock.Since(start))
			callErr = c.transportError(cl, err)

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			observability.ObserveAttempt(req.Method, req.endpoint(), resp.StatusCode, c.clock.Since(start))
			return resp, cl, nil

		default:
			observability.ObserveAttempt(req.Method, req.endpoint(), resp.StatusCode, c.clock.Since(start))
			callErr = c.classify(cl, resp)
		}

		decision := cl.policy.ShouldRetry(cl.state.attempt, cl.idempotent, callErr)
		if !decision.Retry {
			cl.sig.Release()
			return nil, nil, c.fail(callErr)
		}

		observability.RetriesTotal.WithLabelValues(req.endpoint(), decision.Reason).Inc()
		c.logger.Debug("retrying gateway request",
			"request_id", cl.requestID,
			"endpoint", req.endpoint(),
			"attempt", cl.state.attempt+1,
			"delay", decision.Delay,
			"reason", decision.Reason,
			"error", callErr.Error(),
		)
		debug.Log("retry", "backoff", "request_id", cl.requestID, "attempt", cl.state.attempt+1, "delay", decision.Delay, "waited", cl.state.waited)

		cl.state.attempt++
		cl.state.waited += decision.Delay
		cl.state.lastErr = callErr

		if !cl.sig.Sleep(decision.Delay) {
			err := cl.sig.Check(cl.requestID)
			if err == nil {
				err = cl.state.lastErr
			}
			cl.sig.Release()
			return nil, nil, c.fail(err)
		}
	}
}

func (c *Client) newCall(ctx context.Context, req *Request) (*call, error) {
	o := req.Options
	cl := &call{
		req:        req,
		requestID:  o.RequestID,
		policy:     c.retry,
		idempotent: retry.IsIdempotentMethod(req.Method),
	}
	if cl.requestID == "" {
		cl.requestID = transport.NewRequestID()
	}
	if o.Retry != nil {
		cl.policy = *o.Retry
	}
	if o.Idempotent != nil {
		cl.idempotent = *o.Idempotent
	}

	switch {
	case req.RawBody != nil:
		cl.body = req.RawBody
		cl.ctype = req.ContentType
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("zaguan: encoding request: %w", err)
		}
		cl.body = b
		cl.ctype = "application/json"
	}

	cl.sig = cancel.Derive(ctx, o.Timeout, c.timeout, c.clock)
	return cl, nil
}

// buildRequest returns a fresh descriptor for the next attempt.
func (c *Client) buildRequest(cl *call, stream bool) *transport.Request {
	req := cl.req
	h := make(http.Header, len(req.Options.Header)+5)
	for k, vs := range req.Options.Header {
		h[k] = append([]string(nil), vs...)
	}
	h.Set("Authorization", "Bearer "+c.apiKey)
	h.Set("User-Agent", c.userAgent)
	h.Set(transport.RequestIDHeader, cl.requestID)
	if cl.ctype != "" {
		h.Set("Content-Type", cl.ctype)
	}
	if stream {
		h.Set("Accept", "text/event-stream")
	} else if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	timeout := req.Options.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	return &transport.Request{
		Method:      req.Method,
		URL:         u,
		Header:      h,
		Body:        cl.body,
		ContentType: cl.ctype,
		Timeout:     timeout,
		RequestID:   cl.requestID,
	}
}

// transportError maps a failed Send. A fired signal wins over whatever
// error the transport reported.
func (c *Client) transportError(cl *call, err error) error {
	if sigErr := cl.sig.Check(cl.requestID); sigErr != nil {
		return sigErr
	}
	return api.ClassifyTransportError(err, cl.requestID)
}

// classify reads and releases a non-2xx response.
func (c *Client) classify(cl *call, resp *transport.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		if sigErr := cl.sig.Check(cl.requestID); sigErr != nil {
			return sigErr
		}
	}
	classified := api.Classify(resp.StatusCode, resp.Header, body, c.clock.Now())
	if api.CorrelationIDOf(classified) == "" {
		setRequestID(classified, cl.requestID)
	}
	debug.Log("http", "gateway error", "request_id", cl.requestID, "status", resp.StatusCode, "kind", api.KindOf(classified))
	return classified
}

// readError maps a failure while reading a 2xx body.
func (c *Client) readError(cl *call, err error) error {
	if sigErr := cl.sig.Check(cl.requestID); sigErr != nil {
		return sigErr
	}
	return &api.ConnectionError{Reason: api.ReasonNetwork, RequestID: cl.requestID, Err: err}
}

// fail records err before it is returned to the caller.
func (c *Client) fail(err error) error {
	kind := api.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	observability.ErrorsTotal.WithLabelValues(string(kind)).Inc()
	return err
}

// setRequestID fills in the correlation id when the gateway did not echo
// one back.
func setRequestID(err error, id string) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		apiErr.RequestID = id
	}
}
