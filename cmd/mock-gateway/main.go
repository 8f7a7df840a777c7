// Command mock-gateway runs a deterministic Zaguan gateway for SDK
// development and end-to-end tests. See package mockgateway for the fault
// injection headers it understands.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zaguanlabs/zaguan-go/pkg/debug"
	"github.com/zaguanlabs/zaguan-go/pkg/mockgateway"
)

// CLI holds the command line flags. Every flag can also come from the
// environment.
type CLI struct {
	Addr       string        `help:"Address to listen on" default:":9090" env:"MOCK_ADDR"`
	APIKey     string        `help:"Only accept this bearer token (empty accepts any)" env:"MOCK_API_KEY"`
	FrameDelay time.Duration `help:"Pause between streamed frames" default:"0s" env:"MOCK_FRAME_DELAY"`
	RPM        int           `name:"rpm" help:"Requests per minute per API key (0 disables)" default:"0" env:"MOCK_RPM"`
	LogLevel   string        `help:"Log level (TRACE, DEBUG, INFO, WARN, ERROR)" default:"INFO" env:"MOCK_LOG_LEVEL"`
	LogFile    string        `help:"Write logs to this file with rotation instead of stderr" type:"path" env:"MOCK_LOG_FILE"`
	Metrics    bool          `help:"Serve Prometheus metrics on /metrics" default:"true" negatable:"" env:"MOCK_METRICS"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("mock-gateway"),
		kong.Description("Deterministic Zaguan gateway for testing"),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run(&cli))
}

func run(cli *CLI) error {
	var out io.Writer = os.Stderr
	if cli.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cli.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		}
		defer lj.Close()
		out = lj
	}
	slog.SetDefault(debug.NewLogger(out, cli.LogLevel))

	gw := mockgateway.New(mockgateway.Options{
		APIKey:            cli.APIKey,
		FrameDelay:        cli.FrameDelay,
		RequestsPerMinute: cli.RPM,
	})

	mux := http.NewServeMux()
	if cli.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	mux.Handle("/", logRequests(gw.Handler()))

	srv := &http.Server{Addr: cli.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mock gateway starting", "addr", cli.Addr, "auth", cli.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("mock gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-Id"),
			"duration", time.Since(start),
		)
	})
}
