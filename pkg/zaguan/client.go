package zaguan

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zaguanlabs/zaguan-go/pkg/config"
	"github.com/zaguanlabs/zaguan-go/pkg/debug"
	"github.com/zaguanlabs/zaguan-go/pkg/retry"
	"github.com/zaguanlabs/zaguan-go/pkg/transport"
)

// Version is the SDK version reported in the User-Agent header.
const Version = "0.3.0"

// DefaultTimeout bounds a whole call, retries and stream consumption
// included, when neither the client nor the call sets one.
const DefaultTimeout = 120 * time.Second

// Client talks to a Zaguan gateway. It is immutable after New and safe for
// concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	timeout   time.Duration
	retry     retry.Config
	transport transport.Transport
	clock     clock.Clock
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the gateway base URL, e.g. "https://api.zaguanai.com".
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the default timeout of every call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets the default retry policy. Zero delay fields are filled from
// retry.DefaultConfig.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg.Normalize() }
}

// WithTransport replaces the network transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithHTTPClient sends requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.transport = transport.NewHTTP(hc) }
}

// WithClock replaces the clock used for timeouts and backoff waits.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithUserAgent appends an application token to the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = "zaguan-go/" + Version + " " + ua }
}

// WithLogger sets the logger for request and retry logs. By default the
// client logs through slog.Default at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client. An API key is required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:   config.DefaultBaseURL,
		timeout:   DefaultTimeout,
		retry:     retry.DefaultConfig(),
		userAgent: "zaguan-go/" + Version,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, errors.New("zaguan: API key is required")
	}
	if u, err := url.Parse(c.baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("zaguan: invalid base URL %q", c.baseURL)
	}
	if c.timeout < 0 {
		return nil, fmt.Errorf("zaguan: negative timeout %s", c.timeout)
	}
	if err := c.retry.Validate(); err != nil {
		return nil, fmt.Errorf("zaguan: retry config: %w", err)
	}

	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.transport == nil {
		c.transport = transport.NewHTTP(&http.Client{})
	}
	c.transport = transport.Chain(
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(c.logger),
	)(c.transport)

	return c, nil
}

// NewFromConfig creates a Client from loaded configuration. Options are
// applied after the configuration and win over it.
//
// logging.level sets the level of a stderr text logger used unless
// WithLogger is given. logging.debug enables the named debug categories
// process-wide and routes their output to the client's logger.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	base := []Option{
		WithBaseURL(cfg.Client.BaseURL),
		WithAPIKey(cfg.Client.APIKey),
		WithTimeout(cfg.Client.Timeout),
		WithRetry(cfg.Retry),
	}
	if cfg.Client.UserAgent != "" {
		base = append(base, WithUserAgent(cfg.Client.UserAgent))
	}
	if cfg.Logging.Level != "" {
		base = append(base, WithLogger(debug.NewLogger(os.Stderr, cfg.Logging.Level)))
	}

	c, err := New(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Debug != "" {
		debug.SetCategories(cfg.Logging.Debug)
		debug.SetLogger(c.logger)
		debug.Log("config", "debug categories enabled", "categories", debug.Categories())
	}
	return c, nil
}

// BaseURL returns the gateway base URL.
func (c *Client) BaseURL() string { return c.baseURL }
