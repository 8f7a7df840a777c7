// Package cancel merges the cancellation sources of one gateway call into a
// single signal: the per-call (or client default) timeout, the caller's
// context, and the synchronous checks the stream reader makes around every
// read. The first source to fire wins and the signal never un-fires.
package cancel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zaguanlabs/zaguan-go/pkg/api"
)

// ErrTimeout is the cancellation cause recorded when the call timer fires.
var ErrTimeout = errors.New("call timeout elapsed")

// errReleased marks a signal torn down by Release after the call finished.
var errReleased = errors.New("signal released")

// Signal is the effective cancellation signal of one call. Its Context is
// what the transport sees.
type Signal struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	clock  clock.Clock
	timer  *clock.Timer
	once   sync.Once
}

// Derive builds the signal for a call. The timer is armed with callTimeout,
// or defaultTimeout when callTimeout is zero; when both are zero no timer is
// armed. A nil clock means the wall clock.
func Derive(parent context.Context, callTimeout, defaultTimeout time.Duration, clk clock.Clock) *Signal {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancelCause(parent)
	s := &Signal{ctx: ctx, cancel: cancel, clock: clk}

	timeout := callTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout > 0 {
		s.timer = clk.AfterFunc(timeout, func() { cancel(ErrTimeout) })
	}
	return s
}

// Context returns the merged context to hand to the transport.
func (s *Signal) Context() context.Context {
	return s.ctx
}

// Done is closed once any source fires or the signal is released.
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Reason reports which source fired: api.ReasonTimeout for the call timer or
// a parent deadline, api.ReasonCancelled for any other parent cancellation,
// and "" while the signal is live or after a plain Release.
func (s *Signal) Reason() api.ConnectionReason {
	if s.ctx.Err() == nil {
		return ""
	}
	cause := context.Cause(s.ctx)
	switch {
	case errors.Is(cause, errReleased):
		return ""
	case errors.Is(cause, ErrTimeout), errors.Is(cause, context.DeadlineExceeded):
		return api.ReasonTimeout
	default:
		return api.ReasonCancelled
	}
}

// Check is the synchronous check made around blocking reads. It returns a
// cancellation ConnectionError if a source has fired, nil otherwise.
func (s *Signal) Check(requestID string) error {
	reason := s.Reason()
	if reason == "" {
		return nil
	}
	return &api.ConnectionError{
		Reason:    reason,
		RequestID: requestID,
		Err:       context.Cause(s.ctx),
	}
}

// OnFire arranges for f to run once, in its own goroutine, when the signal
// fires or is released. The returned stop function detaches f.
func (s *Signal) OnFire(f func()) (stop func() bool) {
	return context.AfterFunc(s.ctx, f)
}

// Sleep waits d on the signal's clock. It returns false as soon as the
// signal fires, without waiting out the rest of d.
func (s *Signal) Sleep(d time.Duration) bool {
	if s.ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	t := s.clock.Timer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Release stops the timer and tears the derived context down. It is
// idempotent and safe to call from any goroutine; a source that already
// fired keeps its reason.
func (s *Signal) Release() {
	s.once.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.cancel(errReleased)
	})
}
