// Package mockgateway is a deterministic Zaguan gateway for tests and local
// development. It serves canned chat completions (JSON or SSE), models,
// capabilities and credits, and lets a client inject failures through
// request headers:
//
//	X-Mock-Status       respond with this status and a gateway-shaped error body
//	X-Mock-Error-Type   error.type of that body (e.g. band_access_denied)
//	X-Mock-Retry-After  Retry-After header sent with the failure
//	X-Mock-Fail-Times   fail only the first N calls carrying the same X-Request-Id
//	X-Mock-Delay        wait this long (Go duration) before answering
//	X-Mock-Hang-After   stream this many frames, then block until the client leaves
//	X-Mock-Malformed    "1" to insert an unparsable frame into streams
package mockgateway

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zaguanlabs/zaguan-go/internal/json"
	"github.com/zaguanlabs/zaguan-go/pkg/api"
	"github.com/zaguanlabs/zaguan-go/pkg/observability"
)

// Fault injection headers.
const (
	HeaderStatus     = "X-Mock-Status"
	HeaderErrorType  = "X-Mock-Error-Type"
	HeaderRetryAfter = "X-Mock-Retry-After"
	HeaderFailTimes  = "X-Mock-Fail-Times"
	HeaderDelay      = "X-Mock-Delay"
	HeaderHangAfter  = "X-Mock-Hang-After"
	HeaderMalformed  = "X-Mock-Malformed"
)

// Options configures a Gateway.
type Options struct {
	// APIKey, when set, is the only bearer token accepted.
	APIKey string
	// FrameDelay is the pause between streamed frames.
	FrameDelay time.Duration
	// RequestsPerMinute limits each bearer token; zero disables the limit.
	// Excess requests get a 429 with Retry-After.
	RequestsPerMinute int
	// Clock drives the rate limit window. Defaults to the wall clock.
	Clock clock.Clock
}

// Gateway is the mock gateway. All methods are safe for concurrent use.
type Gateway struct {
	opts    Options
	calls   atomic.Int64
	limiter *limiter

	mu       sync.Mutex
	failures map[string]int
}

// New creates a Gateway.
func New(opts Options) *Gateway {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Gateway{
		opts:     opts,
		limiter:  newLimiter(opts.RequestsPerMinute, opts.Clock),
		failures: make(map[string]int),
	}
}

// Calls returns how many API requests reached the gateway, health checks
// excluded.
func (g *Gateway) Calls() int64 { return g.calls.Load() }

// Handler returns the gateway routes wrapped with fault injection, auth and
// metrics middleware.
func (g *Gateway) Handler() http.Handler {
	routes := http.NewServeMux()
	routes.HandleFunc("POST /v1/chat/completions", g.handleChatCompletions)
	routes.HandleFunc("GET /v1/models", g.handleModels)
	routes.HandleFunc("GET /v1/models/{id}", g.handleModel)
	routes.HandleFunc("GET /v1/capabilities", g.handleCapabilities)
	routes.HandleFunc("GET /v1/credits/balance", g.handleCredits)
	routes.HandleFunc("POST /v1/embeddings", g.handleEmbeddings)
	routes.HandleFunc("POST /v1/moderations", g.handleModerations)
	routes.HandleFunc("POST /v1/audio/transcriptions", g.handleTranscriptions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("/v1/", g.middleware(routes))

	return observability.MetricsMiddleware(mux)
}

func (g *Gateway) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.calls.Add(1)

		if id := r.Header.Get(api.RequestIDHeader); id != "" {
			w.Header().Set(api.RequestIDHeader, id)
		}

		if d, err := time.ParseDuration(r.Header.Get(HeaderDelay)); err == nil && d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}

		if g.opts.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+g.opts.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid API key provided")
			return
		}

		if ok, wait := g.limiter.allow(r.Header.Get("Authorization")); !ok {
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			writeFault(w, http.StatusTooManyRequests, "")
			return
		}

		if status, err := strconv.Atoi(r.Header.Get(HeaderStatus)); err == nil && g.shouldFail(r) {
			if ra := r.Header.Get(HeaderRetryAfter); ra != "" {
				w.Header().Set("Retry-After", ra)
			}
			writeFault(w, status, r.Header.Get(HeaderErrorType))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// shouldFail applies X-Mock-Fail-Times, counted per request id.
func (g *Gateway) shouldFail(r *http.Request) bool {
	limit, err := strconv.Atoi(r.Header.Get(HeaderFailTimes))
	if err != nil {
		return true
	}
	key := r.Header.Get(api.RequestIDHeader)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures[key] >= limit {
		return false
	}
	g.failures[key]++
	return true
}

// writeFault writes the error body the real gateway sends for status.
func writeFault(w http.ResponseWriter, status int, errType string) {
	body := map[string]any{"message": http.StatusText(status)}
	switch {
	case status == http.StatusPaymentRequired:
		body["type"] = "insufficient_credits"
		body["message"] = "Insufficient credits for this request"
		body["credits_required"] = 50
		body["credits_remaining"] = 10
		body["reset_date"] = "2026-11-01"
	case status == http.StatusForbidden && errType == api.BandAccessDeniedType:
		body["type"] = api.BandAccessDeniedType
		body["message"] = "Your tier does not include this model band"
		body["band"] = "D"
		body["required_tier"] = "pro"
		body["current_tier"] = "free"
	case status == http.StatusTooManyRequests:
		body["type"] = "rate_limit_exceeded"
		body["message"] = "Rate limit exceeded"
	}
	if errType != "" {
		body["type"] = errType
	}
	writeJSON(w, status, map[string]any{"error": body})
}

func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg, "type": errType},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func lastUserMessage(req *api.ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].ContentText()
		}
	}
	return ""
}

// replyTokens returns the deterministic reply to req, split the way it is
// streamed.
func replyTokens(req *api.ChatCompletionRequest) []string {
	if strings.Contains(strings.ToLower(lastUserMessage(req)), "count from 1 to 5") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	return []string{"Hello", ", ", "nice", " ", "day", "!"}
}
