package conf

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// EnvPrefix is prepended to every environment variable
const EnvPrefix = "MAGICBOT"

// Store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config represents application configuration
type Config struct {
	// State
	StateDir   string `envconfig:"STATE_DIR" default:"/var/lib/magicbot"`
	Store      string `envconfig:"STORE" default:"file"`
	SQLitePath string `envconfig:"SQLITE_PATH"`
	WarnStore  string `envconfig:"WARN_STORE"`
	RedisURL   string `envconfig:"REDIS_URL"`

	// Gateway
	SignalCLI          string        `envconfig:"SIGNAL_CLI" default:"signal-cli"`
	BotName            string        `envconfig:"BOT_NAME" default:"magicbot"`
	GatewayCallTimeout time.Duration `envconfig:"GATEWAY_CALL_TIMEOUT" default:"60s"`
	GatewayRetries     uint          `envconfig:"GATEWAY_RETRIES" default:"2"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Auxiliary services
	MetricsAddr   string `envconfig:"METRICS_ADDR"`
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"@every 10m"`
	KafkaBrokers  string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string `envconfig:"KAFKA_TOPIC" default:"magicbot.moderation"`
	Audit         bool   `envconfig:"AUDIT" default:"true"`
}

// Load reads .env (if present) and the MAGICBOT_* environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c.Store = strings.ToLower(c.Store)
	c.WarnStore = strings.ToLower(c.WarnStore)
	if c.BotName == "" {
		c.BotName = domain.DefaultBotName
	}
	return &c, nil
}

// SQLiteFile returns the sqlite database path
func (c *Config) SQLiteFile() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.StateDir, "magicbot.db")
}

// WarnBackend returns the warn mark backend, defaulting to the config backend
func (c *Config) WarnBackend() string {
	if c.WarnStore != "" {
		return c.WarnStore
	}
	return c.Store
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return &ConfigError{Field: EnvPrefix + "_STORE", Message: "must be file or sqlite"}
	}
	switch c.WarnBackend() {
	case StoreFile, StoreSQLite:
	case StoreRedis:
		if c.RedisURL == "" {
			return &ConfigError{Field: EnvPrefix + "_REDIS_URL", Message: "required for redis warn store"}
		}
	default:
		return &ConfigError{Field: EnvPrefix + "_WARN_STORE", Message: "must be file, sqlite or redis"}
	}
	if c.StateDir == "" {
		return &ConfigError{Field: EnvPrefix + "_STATE_DIR", Message: "required"}
	}
	if c.GatewayCallTimeout < 0 {
		return &ConfigError{Field: EnvPrefix + "_GATEWAY_CALL_TIMEOUT", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// SetupLogger installs the default slog logger. format is text or json.
func SetupLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var opts slog.HandlerOptions
	switch strings.ToLower(level) {
	case "debug":
		opts.Level = slog.LevelDebug
	case "", "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %#v", level)
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, &opts)
	case "json":
		handler = slog.NewJSONHandler(w, &opts)
	default:
		return nil, fmt.Errorf("invalid log format: %#v", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
