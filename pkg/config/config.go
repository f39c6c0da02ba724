package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig describes the IPOS server the session talks to
type ServerConfig struct {
	URL       string        `mapstructure:"url"`
	Prefix    string        `mapstructure:"prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UIVersion string        `mapstructure:"ui_version"`
}

// StorageConfig selects the durable token store
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// GatewayConfig contains the local HTTP gateway configuration
type GatewayConfig struct {
	Port          int    `mapstructure:"port"`
	SessionAPIKey string `mapstructure:"session_api_key"`
}

// TelemetryConfig contains telemetry configuration
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

// Storage backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Load loads the configuration from viper
func Load() (*Config, error) {
	cfg := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal configuration
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Post-process configuration
	if err := postProcess(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.url", "http://localhost:9000")
	viper.SetDefault("server.prefix", "/ipos")
	viper.SetDefault("server.timeout", 30*time.Second)

	// Storage defaults
	viper.SetDefault("storage.backend", BackendFile)

	// Gateway defaults
	viper.SetDefault("gateway.port", 8090)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)

	// Environment variable mappings
	_ = viper.BindEnv("server.url", "IPOS_SERVER")
	_ = viper.BindEnv("server.ui_version", "IPOS_UI_VERSION")
	_ = viper.BindEnv("storage.backend", "IPOS_TOKEN_STORE")
	_ = viper.BindEnv("storage.path", "IPOS_TOKEN_PATH")
	_ = viper.BindEnv("gateway.session_api_key", "SESSION_API_KEY")
	_ = viper.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func postProcess(cfg *Config) error {
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")

	if cfg.Server.Prefix != "" && !strings.HasPrefix(cfg.Server.Prefix, "/") {
		cfg.Server.Prefix = "/" + cfg.Server.Prefix
	}
	cfg.Server.Prefix = strings.TrimRight(cfg.Server.Prefix, "/")

	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if cfg.Storage.Path == "" {
			path, err := defaultStoragePath(cfg.Storage.Backend)
			if err != nil {
				return err
			}
			cfg.Storage.Path = path
		}
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	// Get session API key from environment if not set
	if cfg.Gateway.SessionAPIKey == "" {
		cfg.Gateway.SessionAPIKey = os.Getenv("SESSION_API_KEY")
	}

	return nil
}

func defaultStoragePath(backend string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	name := "session.yaml"
	if backend == BackendSQLite {
		name = "session.db"
	}
	return filepath.Join(dir, "ipos-browser", name), nil
}
