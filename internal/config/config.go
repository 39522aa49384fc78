package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/storage-inspector/internal/common"
)

// Storage backends.
const (
	BackendCDP    = "cdp"
	BackendMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Server      ServerConfig         `toml:"server"`
	Browser     BrowserConfig        `toml:"browser"`
	Storage     StorageConfig        `toml:"storage"`
	Relay       RelayConfig          `toml:"relay"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// BrowserConfig selects the browser and tab to inspect.
type BrowserConfig struct {
	// RemoteURL is a DevTools endpoint (http://localhost:9222). Empty
	// launches a local Chromium.
	RemoteURL string `toml:"remote_url"`
	TargetURL string `toml:"target_url"`
	StartURL  string `toml:"start_url"`
	Headless  bool   `toml:"headless"`
	Timeout   string `toml:"timeout"`
}

// StorageConfig selects the host backend.
type StorageConfig struct {
	Backend string `toml:"backend"`
}

// RelayConfig tunes notification fan-out.
type RelayConfig struct {
	BufferSize int    `toml:"buffer_size"`
	Heartbeat  string `toml:"heartbeat"`
}

// GetTimeout returns the per-operation browser timeout.
func (b BrowserConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// GetHeartbeat returns the SSE heartbeat interval.
func (r RelayConfig) GetHeartbeat() time.Duration {
	d, err := time.ParseDuration(r.Heartbeat)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// IsProduction reports whether the environment is "prod" or "production".
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "prod" || env == "production"
}

// Validate returns human-readable configuration issues. An empty slice
// means the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	switch c.Storage.Backend {
	case BackendCDP, BackendMemory:
	default:
		issues = append(issues, fmt.Sprintf("storage.backend must be %q or %q (got %q)", BackendCDP, BackendMemory, c.Storage.Backend))
	}
	if c.Browser.Timeout != "" {
		if _, err := time.ParseDuration(c.Browser.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("browser.timeout is not a duration: %q", c.Browser.Timeout))
		}
	}
	if c.Relay.Heartbeat != "" {
		if _, err := time.ParseDuration(c.Relay.Heartbeat); err != nil {
			issues = append(issues, fmt.Sprintf("relay.heartbeat is not a duration: %q", c.Relay.Heartbeat))
		}
	}
	if c.Relay.BufferSize <= 0 {
		issues = append(issues, fmt.Sprintf("relay.buffer_size must be positive (got %d)", c.Relay.BufferSize))
	}
	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies INSPECTOR_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INSPECTOR_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("INSPECTOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("INSPECTOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if v := os.Getenv("INSPECTOR_BROWSER_REMOTE_URL"); v != "" {
		config.Browser.RemoteURL = v
	}
	if v := os.Getenv("INSPECTOR_BROWSER_TARGET_URL"); v != "" {
		config.Browser.TargetURL = v
	}
	if v := os.Getenv("INSPECTOR_BROWSER_START_URL"); v != "" {
		config.Browser.StartURL = v
	}
	if v := os.Getenv("INSPECTOR_BROWSER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.Headless = b
		}
	}
	if v := os.Getenv("INSPECTOR_BROWSER_TIMEOUT"); v != "" {
		config.Browser.Timeout = v
	}
	if v := os.Getenv("INSPECTOR_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("INSPECTOR_RELAY_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Relay.BufferSize = n
		}
	}
	if v := os.Getenv("INSPECTOR_RELAY_HEARTBEAT"); v != "" {
		config.Relay.Heartbeat = v
	}
	if level := os.Getenv("INSPECTOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("INSPECTOR_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ApplyBrowserFlagOverrides applies the browser selection flags.
func ApplyBrowserFlagOverrides(config *Config, remoteURL, targetURL, backend string) {
	if remoteURL != "" {
		config.Browser.RemoteURL = remoteURL
	}
	if targetURL != "" {
		config.Browser.TargetURL = targetURL
	}
	if backend != "" {
		config.Storage.Backend = backend
	}
}
