package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort       string `yaml:"server_port"`
	UserAgent        string `yaml:"user_agent"`
	LogLevel         string `yaml:"log_level"`
	SessionBackend   string `yaml:"session_backend"`
	RedisURL         string `yaml:"redis_url"`
	DatabaseURL      string `yaml:"database_url"`
	SessionTTL       string `yaml:"session_ttl"`
	SweepSchedule    string `yaml:"sweep_schedule"`
	CookieName       string `yaml:"cookie_name"`
	CookieSecure     *bool  `yaml:"cookie_secure"`
	ConnectRateLimit *int   `yaml:"connect_rate_limit"`
}

// LoadFromFile loads config from a YAML file. Unset keys keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAML(data)
}

func parseYAML(data []byte) (*Config, error) {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := Default()
	for dst, v := range map[*string]string{
		&c.ServerPort:     f.ServerPort,
		&c.UserAgent:      f.UserAgent,
		&c.LogLevel:       f.LogLevel,
		&c.SessionBackend: f.SessionBackend,
		&c.RedisURL:       f.RedisURL,
		&c.DatabaseURL:    f.DatabaseURL,
		&c.SweepSchedule:  f.SweepSchedule,
		&c.CookieName:     f.CookieName,
	} {
		if v != "" {
			*dst = v
		}
	}
	if f.SessionTTL != "" {
		d, err := time.ParseDuration(f.SessionTTL)
		if err != nil {
			return nil, &FieldError{Field: "session_ttl", Err: err}
		}
		c.SessionTTL = d
	}
	if f.CookieSecure != nil {
		c.CookieSecure = *f.CookieSecure
	}
	if f.ConnectRateLimit != nil {
		c.ConnectRateLimit = *f.ConnectRateLimit
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
