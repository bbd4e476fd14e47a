package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Session backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	ServerPort       string
	UserAgent        string // upstream User-Agent; empty uses the client default
	LogLevel         string
	SessionBackend   string
	RedisURL         string
	DatabaseURL      string
	SessionTTL       time.Duration
	SweepSchedule    string
	CookieName       string
	CookieSecure     bool
	ConnectRateLimit int // connect attempts per minute per client IP
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort:       "5000",
		LogLevel:         "info",
		SessionBackend:   BackendMemory,
		SessionTTL:       12 * time.Hour,
		SweepSchedule:    "@every 5m",
		CookieName:       "xtream_session",
		ConnectRateLimit: 10,
	}
}

// Load builds config from environment variables, after filling unset ones
// from .env.local and .env in the working or executable directory.
func Load() (*Config, error) {
	loadEnvFiles()
	c := Default()
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.UserAgent, "UPSTREAM_USER_AGENT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.SessionBackend, "SESSION_BACKEND")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SweepSchedule, "SWEEP_SCHEDULE")
	setString(&c.CookieName, "COOKIE_NAME")
	if s := os.Getenv("SESSION_TTL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, &FieldError{Field: "SESSION_TTL", Err: err}
		}
		c.SessionTTL = d
	}
	if s := os.Getenv("COOKIE_SECURE"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, &FieldError{Field: "COOKIE_SECURE", Err: err}
		}
		c.CookieSecure = b
	}
	if s := os.Getenv("CONNECT_RATE_LIMIT"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, &FieldError{Field: "CONNECT_RATE_LIMIT", Err: err}
		}
		c.ConnectRateLimit = n
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks backend requirements and value ranges.
func (c *Config) Validate() error {
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))
	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return &FieldError{Field: "session_backend", Err: ErrUnknownBackend}
	}
	if c.SessionTTL < 0 {
		return &FieldError{Field: "session_ttl", Err: ErrNegative}
	}
	if c.ConnectRateLimit < 0 {
		return &FieldError{Field: "connect_rate_limit", Err: ErrNegative}
	}
	if c.CookieName == "" {
		return &FieldError{Field: "cookie_name", Err: ErrEmpty}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
