package zaguan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zaguanlabs/zaguan-go/pkg/transport"
)

var errBodyClosed = errors.New("read on closed body")

// fakeBody serves scripted chunks, one per Read, and counts Close calls.
type fakeBody struct {
	mu     sync.Mutex
	chunks [][]byte
	reads  int
	// block makes Read wait for Close once the chunks run out.
	block bool
	// err is returned once the chunks run out, instead of io.EOF.
	err error

	closes    atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
}

func newBody(chunks ...string) *fakeBody {
	b := &fakeBody{closed: make(chan struct{})}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *fakeBody) Read(p []byte) (int, error) {
	select {
	case <-b.closed:
		return 0, errBodyClosed
	default:
	}

	b.mu.Lock()
	b.reads++
	if len(b.chunks) > 0 {
		n := copy(p, b.chunks[0])
		if n < len(b.chunks[0]) {
			b.chunks[0] = b.chunks[0][n:]
		} else {
			b.chunks = b.chunks[1:]
		}
		b.mu.Unlock()
		return n, nil
	}
	b.mu.Unlock()

	if b.block {
		<-b.closed
		return 0, errBodyClosed
	}
	if b.err != nil {
		return 0, b.err
	}
	return 0, io.EOF
}

func (b *fakeBody) Close() error {
	b.closes.Add(1)
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func (b *fakeBody) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

func response(status int, body io.ReadCloser, kv ...string) *transport.Response {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return &transport.Response{StatusCode: status, Header: h, Body: body}
}

func jsonResponse(status int, body string, kv ...string) *transport.Response {
	return response(status, io.NopCloser(strings.NewReader(body)), append([]string{"Content-Type", "application/json"}, kv...)...)
}

// recorder is a scripted transport: attempt i gets replies[i], the last
// reply repeating. It records every request it sees.
type recorder struct {
	mu      sync.Mutex
	reqs    []*transport.Request
	times   []time.Time
	clock   clock.Clock
	replies []func(ctx context.Context, req *transport.Request) (*transport.Response, error)
	// sent receives the attempt number after each Send starts.
	sent chan int
}

func (r *recorder) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	r.mu.Lock()
	n := len(r.reqs)
	r.reqs = append(r.reqs, req)
	if r.clock != nil {
		r.times = append(r.times, r.clock.Now())
	}
	reply := r.replies[min(n, len(r.replies)-1)]
	r.mu.Unlock()

	if r.sent != nil {
		select {
		case r.sent <- n:
		default:
		}
	}
	return reply(ctx, req)
}

func (r *recorder) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func (r *recorder) Request(i int) *transport.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[i]
}

func reply(resp func() *transport.Response) func(context.Context, *transport.Request) (*transport.Response, error) {
	return func(context.Context, *transport.Request) (*transport.Response, error) { return resp(), nil }
}

func fail(err error) func(context.Context, *transport.Request) (*transport.Response, error) {
	return func(context.Context, *transport.Request) (*transport.Response, error) { return nil, err }
}

// hang blocks until the call's context ends, like a gateway that never answers.
func hang(ctx context.Context, _ *transport.Request) (*transport.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestClient(t *testing.T, tr transport.Transport, opts ...Option) *Client {
	t.Helper()
	c, err := New(append([]Option{
		WithAPIKey("zk-test"),
		WithBaseURL("http://gateway.test"),
		WithTransport(tr),
	}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// advanceUntilDone moves the mock clock forward in steps until done closes.
func advanceUntilDone(t *testing.T, mock *clock.Mock, step time.Duration, done <-chan struct{}) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case <-done:
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("call did not finish")
		}
		mock.Add(step)
	}
}

func sseFrames(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: ")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return b.String()
}
