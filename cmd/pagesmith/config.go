package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds the configured caller identity. Inbound deploy requests
// must carry exactly this email/secret pair.
type AuthConfig struct {
	Email  string `mapstructure:"email"`
	Secret string `mapstructure:"secret"`
}

// GitHubConfig holds hosting provider configuration.
type GitHubConfig struct {
	// Token is a personal access token with repo and delete_repo scopes.
	// Set via PAGESMITH_GITHUB_TOKEN.
	Token string `mapstructure:"token"`

	// Username is the account that owns published repositories.
	Username string `mapstructure:"username"`

	// BaseURL overrides the API endpoint, for GitHub Enterprise or tests.
	BaseURL string `mapstructure:"base_url"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryMax       int           `mapstructure:"retry_max"`
}

// WorkflowConfig holds deployment workflow configuration.
type WorkflowConfig struct {
	// Workers is the number of concurrent deployment goroutines.
	Workers int `mapstructure:"workers"`

	// QueueSize bounds the number of admitted tasks waiting to run.
	QueueSize int `mapstructure:"queue_size"`

	// LivenessAttempts and LivenessInterval bound the post-publish poll of
	// the public site URL.
	LivenessAttempts int           `mapstructure:"liveness_attempts"`
	LivenessInterval time.Duration `mapstructure:"liveness_interval"`
}

// NotifyConfig holds evaluator notification configuration.
type NotifyConfig struct {
	// AttemptTimeout caps each delivery attempt.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// Validate checks configuration that has no usable default.
func (c *Config) Validate() error {
	if c.Auth.Email == "" {
		return errors.New("auth.email must be set")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret must be set")
	}
	if c.GitHub.Token == "" {
		return errors.New("github.token must be set")
	}
	if c.GitHub.Username == "" {
		return errors.New("github.username must be set")
	}
	return nil
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "./data/pagesmith.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.email", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.username", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.request_timeout", "30s")
	v.SetDefault("github.retry_max", 3)
	v.SetDefault("workflow.workers", 4)
	v.SetDefault("workflow.queue_size", 64)
	v.SetDefault("workflow.liveness_attempts", 30)
	v.SetDefault("workflow.liveness_interval", "4s")
	v.SetDefault("notify.attempt_timeout", "30s")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("PAGESMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
