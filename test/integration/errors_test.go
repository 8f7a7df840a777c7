package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zaguanlabs/zaguan-go/pkg/api"
	"github.com/zaguanlabs/zaguan-go/pkg/mockgateway"
	"github.com/zaguanlabs/zaguan-go/pkg/zaguan"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		errType   string
		wantKind  api.ErrorKind
		wantCheck func(t *testing.T, err error)
	}{
		{
			name:     "insufficient credits",
			status:   "402",
			wantKind: api.KindInsufficientCredits,
			wantCheck: func(t *testing.T, err error) {
				var e *api.InsufficientCreditsError
				if !errors.As(err, &e) {
					t.Fatalf("err = %T", err)
				}
				if e.CreditsRequired == nil || *e.CreditsRequired != 50 {
					t.Errorf("CreditsRequired = %v, want 50", e.CreditsRequired)
				}
				if e.CreditsRemaining == nil || *e.CreditsRemaining != 10 {
					t.Errorf("CreditsRemaining = %v, want 10", e.CreditsRemaining)
				}
			},
		},
		{
			name:     "band access denied",
			status:   "403",
			errType:  api.BandAccessDeniedType,
			wantKind: api.KindBandAccessDenied,
			wantCheck: func(t *testing.T, err error) {
				var e *api.BandAccessDeniedError
				if !errors.As(err, &e) {
					t.Fatalf("err = %T", err)
				}
				if e.Band != "D" || e.RequiredTier != "pro" || e.CurrentTier != "free" {
					t.Errorf("band error = %+v", e)
				}
			},
		},
		{
			name:     "plain forbidden",
			status:   "403",
			wantKind: api.KindAPI,
		},
		{
			name:     "rate limited",
			status:   "429",
			wantKind: api.KindRateLimit,
		},
		{
			name:     "server error",
			status:   "500",
			wantKind: api.KindAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t)
			opts := []zaguan.CallOption{
				zaguan.WithHeader(mockgateway.HeaderStatus, tt.status),
				zaguan.WithRequestID("taxonomy-" + tt.name),
			}
			if tt.errType != "" {
				opts = append(opts, zaguan.WithHeader(mockgateway.HeaderErrorType, tt.errType))
			}

			_, err := c.CreateChatCompletion(context.Background(), &api.ChatCompletionRequest{
				Model:    mockgateway.MockModel,
				Messages: []api.ChatMessage{{Role: "user", Content: "hi"}},
			}, opts...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := api.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf = %q, want %q", got, tt.wantKind)
			}
			if got := api.CorrelationIDOf(err); got != "taxonomy-"+tt.name {
				t.Errorf("CorrelationIDOf = %q", got)
			}
			var base *api.APIError
			if !errors.As(err, &base) {
				t.Error("every status error should unwrap to *api.APIError")
			}
			if tt.wantCheck != nil {
				tt.wantCheck(t, err)
			}
		})
	}
}

func TestAuthenticationError(t *testing.T) {
	c := newClient(t, zaguan.WithAPIKey("zk-wrong"))

	_, err := c.ListModels(context.Background())
	var authErr *api.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %T %v, want *api.AuthenticationError", err, err)
	}
	if authErr.StatusCode() != 401 || authErr.Type != "invalid_api_key" {
		t.Errorf("auth error = %+v", authErr)
	}
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	c := newClient(t)
	before := testEnv.Gateway.Calls()

	list, err := c.ListModels(context.Background(),
		zaguan.WithHeader(mockgateway.HeaderStatus, "503"),
		zaguan.WithHeader(mockgateway.HeaderFailTimes, "2"),
		zaguan.WithRequestID("retry-recovers"),
	)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(list.Data) == 0 {
		t.Error("expected models after recovery")
	}
	if calls := testEnv.Gateway.Calls() - before; calls != 3 {
		t.Errorf("gateway calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	c := newClient(t)
	before := testEnv.Gateway.Calls()

	_, err := c.ListModels(context.Background(),
		zaguan.WithHeader(mockgateway.HeaderStatus, "503"),
		zaguan.WithRequestID("retry-gives-up"),
	)
	if api.StatusCodeOf(err) != 503 {
		t.Fatalf("err = %v, want 503", err)
	}
	if calls := testEnv.Gateway.Calls() - before; calls != 3 {
		t.Errorf("gateway calls = %d, want 3 (1 + MaxRetries)", calls)
	}
}

func TestRetryAfterHonoured(t *testing.T) {
	c := newClient(t)
	start := time.Now()

	_, err := c.ListModels(context.Background(),
		zaguan.WithHeader(mockgateway.HeaderStatus, "429"),
		zaguan.WithHeader(mockgateway.HeaderRetryAfter, "1"),
		zaguan.WithHeader(mockgateway.HeaderFailTimes, "1"),
		zaguan.WithRequestID("retry-after"),
	)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	// The configured backoff is 10ms; Retry-After asks for a full second.
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("elapsed = %v, want at least the 1s Retry-After", elapsed)
	}
}

func TestPostIsNotRetried(t *testing.T) {
	c := newClient(t)
	before := testEnv.Gateway.Calls()

	_, err := c.CreateEmbeddings(context.Background(),
		&api.EmbeddingRequest{Model: "mock-embed", Input: "x"},
		zaguan.WithHeader(mockgateway.HeaderStatus, "503"),
	)
	if api.StatusCodeOf(err) != 503 {
		t.Fatalf("err = %v, want 503", err)
	}
	if calls := testEnv.Gateway.Calls() - before; calls != 1 {
		t.Errorf("gateway calls = %d, want 1", calls)
	}
}

func TestTimeout(t *testing.T) {
	c := newClient(t)

	_, err := c.ListModels(context.Background(),
		zaguan.WithHeader(mockgateway.HeaderDelay, "2s"),
		zaguan.WithCallTimeout(100*time.Millisecond),
	)
	var ce *api.ConnectionError
	if !errors.As(err, &ce) || !ce.Timeout() {
		t.Fatalf("err = %v, want timeout ConnectionError", err)
	}
}

func TestConnectionRefused(t *testing.T) {
	c, err := zaguan.New(
		zaguan.WithAPIKey(testAPIKey),
		zaguan.WithBaseURL("http://127.0.0.1:1"),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.ListModels(context.Background())
	var ce *api.ConnectionError
	if !errors.As(err, &ce) || ce.Reason != api.ReasonNetwork {
		t.Fatalf("err = %v, want network ConnectionError", err)
	}
}
