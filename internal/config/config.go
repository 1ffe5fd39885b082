package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hongminglow/flous-cash-be/internal/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	RedisURL     string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	UserCacheTTL time.Duration `envconfig:"USER_CACHE_TTL" default:"1h"`

	JWTSecret     string   `envconfig:"JWT_SECRET"`
	JWTIssuer     string   `envconfig:"JWT_ISSUER" default:"flous-cash-backend"`
	JWTTTLMinutes int      `envconfig:"JWT_TTL_MINUTES" default:"60"`
	CORSOrigins   []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	ContractsDir  string        `envconfig:"CONTRACTS_DIR" default:"contracts"`
	WalletNumber  string        `envconfig:"WALLET_NUMBER" default:"01026751430"`
	RenderTimeout time.Duration `envconfig:"RENDER_TIMEOUT" default:"15s"`
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
	EventsStream     string `envconfig:"EVENTS_STREAM" default:"services.events"`
	AMQPURL          string `envconfig:"AMQP_URL"`
	AMQPExchange     string `envconfig:"AMQP_EXCHANGE" default:"flous.exchange"`

	AdminUsername string `envconfig:"ADMIN_USERNAME"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	LogLevel      string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFilename   string `envconfig:"LOG_FILENAME" default:"logs/app.log"`
	LogMaxSize    int    `envconfig:"LOG_MAX_SIZE" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	LogMaxAge     int    `envconfig:"LOG_MAX_AGE" default:"28"`
	LogCompress   bool   `envconfig:"LOG_COMPRESS" default:"true"`
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverPostgres
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.JWTTTLMinutes <= 0 {
		cfg.JWTTTLMinutes = 60
	}

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.RenderTimeout <= 0 || cfg.NotifyTimeout <= 0 {
		return Config{}, errors.New("RENDER_TIMEOUT and NOTIFY_TIMEOUT must be positive")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == 0 {
		return Config{}, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// JWTTTL is the lifetime of issued access tokens.
func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// SeedAdmin reports whether an admin account should be ensured at startup.
func (c Config) SeedAdmin() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

// Logger maps the LOG_* settings onto the logger package.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		Filename:   c.LogFilename,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
		Compress:   c.LogCompress,
	}
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
