package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ZAGUAN_CONFIG env, ./zaguan.yaml, ~/.config/zaguan/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ZAGUAN_CONFIG environment variable
// 3. ./zaguan.yaml in the current directory
// 4. ~/.config/zaguan/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("ZAGUAN_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{"zaguan.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "zaguan", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps ZAGUAN_* environment variables to config fields.
// Unlike string settings, a malformed number or duration is an error rather
// than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ZAGUAN_BASE_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("ZAGUAN_API_KEY"); v != "" {
		cfg.Client.APIKey = v
	}
	if v := os.Getenv("ZAGUAN_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("ZAGUAN_TIMEOUT: %w", err)
		}
		cfg.Client.Timeout = d
	}
	if v := os.Getenv("ZAGUAN_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ZAGUAN_MAX_RETRIES: %w", err)
		}
		cfg.Retry.MaxRetries = n
	}
	if v := os.Getenv("ZAGUAN_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}
	if v := os.Getenv("ZAGUAN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// parseDuration accepts a Go duration ("30s") or a bare number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// If the value field is empty and the file field is set, the file is read,
// whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if cfg.Client.APIKeyFile != "" && cfg.Client.APIKey == "" {
		val, err := readSecretFile(cfg.Client.APIKeyFile)
		if err != nil {
			return fmt.Errorf("client.api_key_file: %w", err)
		}
		cfg.Client.APIKey = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
