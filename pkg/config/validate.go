package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zaguanlabs/zaguan-go/pkg/debug"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Client.APIKey == "" {
		errs = append(errs, fmt.Errorf("client.api_key or client.api_key_file is required"))
	}

	if c.Client.BaseURL == "" {
		errs = append(errs, fmt.Errorf("client.base_url is required"))
	} else if u, err := url.Parse(c.Client.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("client.base_url must be an absolute URL, got %q", c.Client.BaseURL))
	}

	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be >= 0, got %s", c.Client.Timeout))
	}

	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of TRACE, DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level))
	}

	if err := debug.CheckCategories(c.Logging.Debug); err != nil {
		errs = append(errs, fmt.Errorf("logging.debug: %w", err))
	}

	return errors.Join(errs...)
}
