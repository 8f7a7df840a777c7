// Package config provides unified configuration for the Zaguan SDK client.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ZAGUAN_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/zaguanlabs/zaguan-go/pkg/retry"
)

// DefaultBaseURL is the public Zaguan gateway.
const DefaultBaseURL = "https://api.zaguanai.com"

// Config holds all configuration for a client.
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Retry   retry.Config  `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
}

// ClientConfig holds connection settings.
type ClientConfig struct {
	BaseURL    string        `yaml:"base_url"`     // default: DefaultBaseURL
	APIKey     string        `yaml:"api_key"`      // required
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // default: 120s, 0 disables
	UserAgent  string        `yaml:"user_agent"`   // optional suffix
}

// LoggingConfig holds debug logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // "TRACE", "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	Debug string `yaml:"debug"` // comma separated categories, e.g. "http,retry"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Client: ClientConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 120 * time.Second,
		},
		Retry: retry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}
