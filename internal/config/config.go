package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr           string        `validate:"required"`
	DBDriver           string        `validate:"oneof=postgres sqlite"`
	DatabaseURL        string        `validate:"required"`
	JWTSecret          string        `validate:"required,min=16"`
	RedisURL           string        `validate:"omitempty,url"`
	NotifyChannel      string        `validate:"required"`
	LogLevel           string        `validate:"oneof=debug info warn error"`
	LogFormat          string        `validate:"oneof=json console"`
	CORSAllowedOrigins []string      `validate:"min=1"`
	RateLimitPerMinute int           `validate:"gte=0"`
	DBMaxOpenConns     int           `validate:"gte=0"`
	DBMaxIdleConns     int           `validate:"gte=0"`
	DBConnMaxLifetime  time.Duration `validate:"gte=0"`
	RequestTimeout     time.Duration `validate:"gt=0"`
	NotifyWorkers      int           `validate:"gte=1"`
	NotifyBufferSize   int           `validate:"gte=1"`
}

// Load reads .env when present, then the process environment. Returns an
// error describing every invalid setting.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	var env parser
	cfg := &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		NotifyChannel:      getEnv("NOTIFY_CHANNEL", "requisitions.events"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "json")),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute: env.integer("RATE_LIMIT_PER_MINUTE", 120),
		DBMaxOpenConns:     env.integer("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:     env.integer("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime:  env.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		RequestTimeout:     env.duration("REQUEST_TIMEOUT", 10*time.Second),
		NotifyWorkers:      env.integer("NOTIFY_WORKERS", 2),
		NotifyBufferSize:   env.integer("NOTIFY_BUFFER_SIZE", 256),
	}

	errs := env.errs
	if err := validator.New().Struct(cfg); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parser collects malformed numeric settings instead of falling back to
// defaults, so a typo is reported at startup.
type parser struct {
	errs []error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return fallback
	}
	return parsed
}

func (p *parser) integer(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return fallback
	}
	return parsed
}
