package config

import "github.com/bobmcallan/storage-inspector/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "dev",
		Server: ServerConfig{
			Port: 4251,
			Host: "localhost",
		},
		Browser: BrowserConfig{
			StartURL: "about:blank",
			Headless: true,
			Timeout:  "15s",
		},
		Storage: StorageConfig{
			Backend: BackendCDP,
		},
		Relay: RelayConfig{
			BufferSize: 32,
			Heartbeat:  "30s",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
