// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// AppConfig holds all application configuration.
// It is instantiated by NewConfig() and passed to components that need it (dependency injection).
type AppConfig struct {
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Log       LogConfig       `mapstructure:"log"`
	State     StateConfig     `mapstructure:"state"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Sim       SimConfig       `mapstructure:"sim"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GatewayConfig holds the chat channel client configuration.
type GatewayConfig struct {
	BaseURL          string        `mapstructure:"base_url"`  // http(s) base; ws scheme derived from it
	ChatPath         string        `mapstructure:"chat_path"` // websocket path under the API prefix
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"` // delay before reconnect after abnormal close
	GraceDelay       time.Duration `mapstructure:"grace_delay"`       // delay before post-completion disconnect
	SendPollInterval time.Duration `mapstructure:"send_poll_interval"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`
}

// LogConfig holds comprehensive logging configuration
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  []LogOutputConfig `mapstructure:"output"`
	Levels  map[string]string `mapstructure:"levels"`
	Context LogContextConfig  `mapstructure:"context"`
}

// LogOutputConfig defines where logs are written
type LogOutputConfig struct {
	Type    string          `mapstructure:"type"` // "file" or "console"
	Enabled bool            `mapstructure:"enabled"`
	Path    string          `mapstructure:"path"`   // For file output
	Rotate  LogRotateConfig `mapstructure:"rotate"` // For file output
}

// LogRotateConfig defines log rotation settings
type LogRotateConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// LogContextConfig defines what context to include in logs
type LogContextConfig struct {
	IncludeCaller    bool `mapstructure:"include_caller"`
	IncludeTimestamp bool `mapstructure:"include_timestamp"`
}

// StateConfig holds local persisted-state settings (session id, preferences).
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig holds the history store configuration (simulator side).
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ServerConfig holds the gateway simulator server configuration.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // Empty = allow all (development); set for production
}

// SimConfig holds simulator behavior settings.
type SimConfig struct {
	ScenarioFile  string        `mapstructure:"scenario_file"`  // yaml reply scripts; empty = built-in echo scenario
	FragmentDelay time.Duration `mapstructure:"fragment_delay"` // pause between streamed fragments
}

// TelemetryConfig holds tracing configuration.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // OTLP HTTP endpoint, host:port
	Insecure bool   `mapstructure:"insecure"`
}

// NewConfig creates a new AppConfig by reading from a file, environment variables,
// and applying defaults.
func NewConfig(configPath string) (*AppConfig, error) {
	cfg := defaultConfig()

	v := viper.New()

	// Set config file if provided, otherwise search in standard locations
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/hearth/")
		v.AddConfigPath("$HOME/.hearth")
	}

	v.SetEnvPrefix("HEARTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file. It's okay if it doesn't exist.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.expandPaths()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// defaultConfig returns an AppConfig with default values.
// This is more type-safe than using viper.SetDefault().
func defaultConfig() AppConfig {
	return AppConfig{
		Gateway: GatewayConfig{
			BaseURL:          "http://127.0.0.1:8098",
			ChatPath:         "/api/v1/chat",
			HandshakeTimeout: 10 * time.Second,
			ReconnectBackoff: 3 * time.Second,
			GraceDelay:       500 * time.Millisecond,
			SendPollInterval: 100 * time.Millisecond,
			SendTimeout:      5 * time.Second,
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "console",
			Output: []LogOutputConfig{
				{
					Type:    "file",
					Enabled: true,
					Path:    "./logs/hearth.log",
					Rotate: LogRotateConfig{
						MaxSizeMB:  50,
						MaxBackups: 5,
						MaxAgeDays: 14,
						Compress:   true,
					},
				},
				{
					Type:    "console",
					Enabled: false, // Disabled by default for TUI
				},
			},
			Levels: map[string]string{
				"gateway":    "INFO",
				"transcript": "INFO",
				"api":        "INFO",
				"sim":        "INFO",
				"history":    "INFO",
				"tui":        "WARN",
			},
			Context: LogContextConfig{
				IncludeCaller:    true,
				IncludeTimestamp: true,
			},
		},
		State: StateConfig{
			Dir: "~/.hearth",
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Database: "hearth-history.db",
			Host:     "localhost",
			Port:     5432,
			SSLMode:  "disable",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8098,
		},
		Sim: SimConfig{
			FragmentDelay: 40 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "localhost:4318",
			Insecure: true,
		},
	}
}

// expandPaths expands ~ and environment variables in path configuration values
func (c *AppConfig) expandPaths() {
	if c.State.Dir != "" {
		c.State.Dir = expandPath(c.State.Dir)
	}
	if c.Sim.ScenarioFile != "" {
		c.Sim.ScenarioFile = expandPath(c.Sim.ScenarioFile)
	}
}

// expandPath expands ~ to home directory and environment variables
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return os.ExpandEnv(path)
}

// validate checks if the configuration is valid.
func (c *AppConfig) validate() error {
	if c.Gateway.BaseURL == "" {
		return errors.New("gateway.base_url is required")
	}
	if u, err := url.Parse(c.Gateway.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("gateway.base_url must be an http(s) URL, got: %s", c.Gateway.BaseURL)
	}
	if !strings.HasPrefix(c.Gateway.ChatPath, "/") {
		return fmt.Errorf("gateway.chat_path must start with '/', got: %s", c.Gateway.ChatPath)
	}

	validLogLevels := map[string]bool{
		"TRACE": true, "DEBUG": true, "INFO": true, "WARN": true, "ERROR": true, "FATAL": true, "PANIC": true,
	}
	if !validLogLevels[strings.ToUpper(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Database.Driver == "" {
		return errors.New("database driver is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// GetDSN returns the database connection string for the history store.
func (dc *DatabaseConfig) GetDSN() string {
	switch dc.Driver {
	case "sqlite":
		dsn := dc.Database
		if dsn == ":memory:" {
			dsn = "file::memory:?cache=shared"
		}
		return dsn
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dc.Host, dc.Port, dc.Username, dc.Password, dc.Database, dc.SSLMode)
	default:
		// Fallback for drivers that use a connection string directly
		return dc.Database
	}
}
