package zaguan

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/zaguanlabs/zaguan-go/pkg/api"
	"github.com/zaguanlabs/zaguan-go/pkg/cancel"
	"github.com/zaguanlabs/zaguan-go/pkg/debug"
	"github.com/zaguanlabs/zaguan-go/pkg/observability"
	"github.com/zaguanlabs/zaguan-go/pkg/sse"
)

const readBufferSize = 4096

// Stream is a lazy, single-consumer sequence of server-sent events.
//
// Bytes are read from the network only inside Next. The response body is
// released exactly once, when the [DONE] frame arrives, the body ends, a
// read fails, the call is cancelled, or Close is called.
type Stream struct {
	body      io.ReadCloser
	sig       *cancel.Signal
	dec       *sse.Decoder
	requestID string
	endpoint  string
	client    *Client

	buf     []byte
	pending []sse.Event
	cur     sse.Event
	err     error
	// drained is set once no more bytes will be read.
	drained bool

	closed atomic.Bool
	// dropped mirrors the decoder's count so release can report it from
	// any goroutine; reported is the part already added to the metric.
	dropped     atomic.Int64
	reported    atomic.Int64
	stopFire    atomic.Pointer[func() bool]
	releaseOnce sync.Once
}

// Stream sends req and, on a 2xx response, returns the event stream. The
// connection phase goes through the same retry loop as Do.
func (c *Client) Stream(ctx context.Context, req *Request) (*Stream, error) {
	resp, cl, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		body:      resp.Body,
		sig:       cl.sig,
		dec:       sse.NewDecoder(),
		requestID: cl.requestID,
		endpoint:  req.endpoint(),
		client:    c,
		buf:       make([]byte, readBufferSize),
	}
	observability.StreamsActive.Inc()
	// A source firing while Read is blocked closes the body to unblock it.
	// OnFire may already be running release when it returns.
	stop := cl.sig.OnFire(s.release)
	s.stopFire.Store(&stop)
	return s, nil
}

// RequestID returns the correlation id of the call.
func (s *Stream) RequestID() string { return s.requestID }

// Next advances to the next event. It returns false at the end of the
// stream or on error; check Err afterwards.
func (s *Stream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.cur = s.pending[0]
			s.pending[0] = sse.Event{}
			s.pending = s.pending[1:]
			observability.StreamEventsTotal.WithLabelValues(s.endpoint).Inc()
			return true
		}
		if s.drained {
			return false
		}
		s.read()
	}
}

// read performs one blocking read, checking the signal on both sides of it.
func (s *Stream) read() {
	if s.closed.Load() {
		s.stop(nil)
		return
	}
	if err := s.sig.Check(s.requestID); err != nil {
		s.stop(err)
		return
	}

	n, err := s.body.Read(s.buf)

	if s.closed.Load() {
		s.stop(nil)
		return
	}
	if sigErr := s.sig.Check(s.requestID); sigErr != nil {
		s.stop(sigErr)
		return
	}
	if n > 0 {
		debug.Raw("stream", string(s.buf[:n]))
		s.pending = append(s.pending, s.dec.Feed(s.buf[:n])...)
		s.dropped.Store(int64(s.dec.Dropped()))
		if s.dec.State() == sse.StateTerminated {
			s.stop(nil)
			return
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.pending = append(s.pending, s.dec.Finish()...)
		s.dropped.Store(int64(s.dec.Dropped()))
		s.stop(nil)
	default:
		s.stop(&api.ConnectionError{Reason: api.ReasonNetwork, RequestID: s.requestID, Err: err})
	}
}

// stop ends reading. Events already decoded are still delivered unless the
// stream failed.
func (s *Stream) stop(err error) {
	s.drained = true
	if err != nil {
		s.err = s.client.fail(err)
		s.pending = nil
	}
	s.release()
	debug.Log("stream", "stream finished", "request_id", s.requestID, "state", s.dec.State(), "dropped", s.dec.Dropped(), "error", err)
}

func (s *Stream) release() {
	s.releaseOnce.Do(func() {
		if stop := s.stopFire.Load(); stop != nil {
			(*stop)()
		}
		s.body.Close()
		s.sig.Release()

		observability.StreamsActive.Dec()
	})
	s.reportDropped()
}

// reportDropped adds frames dropped since the last report to the metric.
func (s *Stream) reportDropped() {
	for {
		prev, n := s.reported.Load(), s.dropped.Load()
		if n <= prev {
			return
		}
		if s.reported.CompareAndSwap(prev, n) {
			observability.StreamFramesDroppedTotal.WithLabelValues(s.endpoint).Add(float64(n - prev))
			return
		}
	}
}

// Event returns the event produced by the last call to Next.
func (s *Stream) Event() sse.Event { return s.cur }

// Err returns the error that ended the stream, or nil after a clean end.
func (s *Stream) Err() error { return s.err }

// Close releases the stream. It is safe to call more than once and from
// another goroutine than the consumer.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.release()
	return nil
}

// Events returns the stream as an iterator. The stream is closed when the
// loop ends; a terminal error is yielded last with an empty event.
func (s *Stream) Events() iter.Seq2[sse.Event, error] {
	return func(yield func(sse.Event, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Event(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(sse.Event{}, err)
		}
	}
}

var _ io.Closer = (*Stream)(nil)
