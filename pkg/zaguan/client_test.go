package zaguan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/zaguanlabs/zaguan-go/pkg/api"
	"github.com/zaguanlabs/zaguan-go/pkg/config"
	"github.com/zaguanlabs/zaguan-go/pkg/debug"
	"github.com/zaguanlabs/zaguan-go/pkg/retry"
	"github.com/zaguanlabs/zaguan-go/pkg/transport"
)

func TestNewFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Client.APIKey = "zk-config"
	cfg.Client.BaseURL = "https://gw.example.com/"
	cfg.Client.Timeout = 7 * time.Second
	cfg.Client.UserAgent = "cli/1"
	cfg.Retry = retry.Config{MaxRetries: 4}

	rec := &recorder{replies: []func(context.Context, *transport.Request) (*transport.Response, error){
		reply(func() *transport.Response { return jsonResponse(200, `{}`) }),
	}}
	c, err := NewFromConfig(&cfg, WithTransport(rec))
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if c.BaseURL() != "https://gw.example.com" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if c.retry.MaxRetries != 4 || c.retry.InitialDelay != time.Second {
		t.Errorf("retry = %+v, want MaxRetries 4 with default delays", c.retry)
	}

	if err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/v1/models"}, nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	req := rec.Request(0)
	if got := req.Header.Get("Authorization"); got != "Bearer zk-config" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("User-Agent"); !strings.HasSuffix(got, " cli/1") {
		t.Errorf("User-Agent = %q", got)
	}
	if req.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", req.Timeout)
	}
}

func TestNewFromConfig_Logging(t *testing.T) {
	prev := debug.Categories()
	t.Cleanup(func() {
		debug.SetCategories(strings.Join(prev, ","))
		debug.SetLogger(nil)
	})

	tests := []struct {
		name      string
		level     string
		cats      string
		opts      []Option
		wantDebug bool
		wantTrace bool
		wantCats  []string
	}{
		{name: "info", level: "INFO"},
		{name: "debug level", level: "DEBUG", wantDebug: true},
		{name: "trace with categories", level: "TRACE", cats: "http,retry", wantDebug: true, wantTrace: true, wantCats: []string{"http", "retry"}},
		{name: "caller logger wins", level: "ERROR", cats: "stream", opts: []Option{WithLogger(debug.NewLogger(io.Discard, "TRACE"))}, wantDebug: true, wantTrace: true, wantCats: []string{"stream"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debug.SetCategories("")
			debug.SetLogger(nil)

			cfg := config.Defaults()
			cfg.Client.APIKey = "zk-config"
			cfg.Logging.Level = tt.level
			cfg.Logging.Debug = tt.cats

			c, err := NewFromConfig(&cfg, append([]Option{WithTransport(&recorder{})}, tt.opts...)...)
			if err != nil {
				t.Fatalf("NewFromConfig() error = %v", err)
			}

			ctx := t.Context()
			if got := c.logger.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("logger debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := debug.Categories(); !slices.Equal(got, tt.wantCats) {
				t.Errorf("debug categories = %v, want %v", got, tt.wantCats)
			}
			for _, cat := range tt.wantCats {
				if got := debug.TraceIsEnabled(cat); got != tt.wantTrace {
					t.Errorf("TraceIsEnabled(%q) = %v, want %v", cat, got, tt.wantTrace)
				}
			}
		})
	}
}

func TestNewFromConfig_OptionsWin(t *testing.T) {
	cfg := config.Defaults()
	cfg.Client.APIKey = "zk-config"

	c, err := NewFromConfig(&cfg, WithAPIKey("zk-override"), WithBaseURL("http://localhost:9090"))
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if c.apiKey != "zk-override" || c.BaseURL() != "http://localhost:9090" {
		t.Errorf("apiKey = %q, BaseURL = %q", c.apiKey, c.BaseURL())
	}
}

func TestEncodeTranscription(t *testing.T) {
	temp := 0.2
	body, ctype, err := encodeTranscription(&api.TranscriptionRequest{
		Model:          "whisper-1",
		Audio:          []byte("RIFF...."),
		Language:       "es",
		ResponseFormat: "json",
		Temperature:    &temp,
	})
	if err != nil {
		t.Fatalf("encodeTranscription() error = %v", err)
	}

	mt, params, err := mime.ParseMediaType(ctype)
	if err != nil || mt != "multipart/form-data" {
		t.Fatalf("content type = %q (%v)", ctype, err)
	}
	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	form, err := r.ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm() error = %v", err)
	}
	defer form.RemoveAll()

	want := map[string]string{"model": "whisper-1", "language": "es", "response_format": "json", "temperature": "0.2"}
	for k, v := range want {
		if got := form.Value[k]; len(got) != 1 || got[0] != v {
			t.Errorf("field %s = %v, want %q", k, got, v)
		}
	}
	if _, ok := form.Value["prompt"]; ok {
		t.Error("empty prompt should be omitted")
	}

	files := form.File["file"]
	if len(files) != 1 || files[0].Filename != "audio.wav" {
		t.Fatalf("file parts = %v", files)
	}
	f, err := files[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "RIFF...." {
		t.Errorf("file data = %q", data)
	}
}

func TestCreateTranscription_EmptyAudio(t *testing.T) {
	rec := &recorder{replies: []func(context.Context, *transport.Request) (*transport.Response, error){
		reply(func() *transport.Response { return jsonResponse(200, `{}`) }),
	}}
	c := newTestClient(t, rec)

	if _, err := c.CreateTranscription(context.Background(), &api.TranscriptionRequest{Model: "whisper-1"}); err == nil {
		t.Error("CreateTranscription() error = nil, want empty audio error")
	}
	if n := rec.Attempts(); n != 0 {
		t.Errorf("attempts = %d, want 0", n)
	}
}

func TestCreateTranscription_InvalidJSONCarriesRequestID(t *testing.T) {
	tests := []struct {
		name   string
		opts   []CallOption
		wantID string
	}{
		{"generated", nil, ""},
		{"caller supplied", []CallOption{WithRequestID("tr-42")}, "tr-42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{replies: []func(context.Context, *transport.Request) (*transport.Response, error){
				reply(func() *transport.Response { return jsonResponse(200, `{bad`) }),
			}}
			c := newTestClient(t, rec)

			req := &api.TranscriptionRequest{Model: "whisper-1", FileName: "a.wav", Audio: []byte("RIFF"), ResponseFormat: "json"}
			_, err := c.CreateTranscription(context.Background(), req, tt.opts...)

			var apiErr *api.APIError
			if !errors.As(err, &apiErr) || apiErr.Type != "invalid_response" {
				t.Fatalf("err = %v, want invalid_response APIError", err)
			}
			sent := rec.Request(0).RequestID
			if sent == "" {
				t.Fatal("request went out without a correlation id")
			}
			if got := api.CorrelationIDOf(err); got != sent {
				t.Errorf("CorrelationIDOf = %q, want %q", got, sent)
			}
			if tt.wantID != "" && sent != tt.wantID {
				t.Errorf("sent RequestID = %q, want %q", sent, tt.wantID)
			}
		})
	}
}

func TestCreateChatCompletion_ForcesNonStreaming(t *testing.T) {
	rec := &recorder{replies: []func(context.Context, *transport.Request) (*transport.Response, error){
		reply(func() *transport.Response {
			return jsonResponse(200, `{"id":"c1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`)
		}),
	}}
	c := newTestClient(t, rec)

	req := &api.ChatCompletionRequest{
		Model:         "m",
		Messages:      []api.ChatMessage{{Role: "user", Content: "hello"}},
		Stream:        true,
		StreamOptions: &api.ChatStreamOptions{IncludeUsage: true},
	}
	resp, err := c.CreateChatCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateChatCompletion() error = %v", err)
	}
	if got := resp.Choices[0].Message.ContentText(); got != "hi" {
		t.Errorf("content = %q, want hi", got)
	}
	sent := string(rec.Request(0).Body)
	if strings.Contains(sent, `"stream"`) {
		t.Errorf("request body = %s, want no stream fields", sent)
	}
	if !req.Stream {
		t.Error("caller request was modified")
	}
}
