package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_PORT", "UPSTREAM_USER_AGENT", "LOG_LEVEL", "SESSION_BACKEND", "REDIS_URL",
		"DATABASE_URL", "SESSION_TTL", "SWEEP_SCHEDULE", "COOKIE_NAME", "COOKIE_SECURE", "CONNECT_RATE_LIMIT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_env(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CONNECT_RATE_LIMIT", "3")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", c.ServerPort)
	assert.Equal(t, BackendRedis, c.SessionBackend)
	assert.Equal(t, 30*time.Minute, c.SessionTTL)
	assert.True(t, c.CookieSecure)
	assert.Equal(t, 3, c.ConnectRateLimit)
}

func TestLoad_badValues(t *testing.T) {
	for key, val := range map[string]string{
		"SESSION_TTL":        "soon",
		"COOKIE_SECURE":      "maybe",
		"CONNECT_RATE_LIMIT": "ten",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load()
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, key, fe.Field)
		})
	}
}

func TestLoad_envFile(t *testing.T) {
	clearEnv(t)
	dir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("# comment\nexport SERVER_PORT=\"9000\"\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("LOG_LEVEL")
	})

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", c.ServerPort)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"redis without url", func(c *Config) { c.SessionBackend = BackendRedis }, ErrMissingRedisURL},
		{"postgres without url", func(c *Config) { c.SessionBackend = BackendPostgres }, ErrMissingDatabaseURL},
		{"unknown backend", func(c *Config) { c.SessionBackend = "etcd" }, ErrUnknownBackend},
		{"negative ttl", func(c *Config) { c.SessionTTL = -time.Second }, ErrNegative},
		{"empty cookie", func(c *Config) { c.CookieName = "" }, ErrEmpty},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			assert.ErrorIs(t, c.Validate(), tc.want)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: "7000"
session_backend: postgres
database_url: postgres://relay@localhost/relay
session_ttl: 2h
cookie_secure: true
connect_rate_limit: 0
`), 0o600))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", c.ServerPort)
	assert.Equal(t, BackendPostgres, c.SessionBackend)
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
	assert.True(t, c.CookieSecure)
	assert.Zero(t, c.ConnectRateLimit)
	assert.Equal(t, "xtream_session", c.CookieName)
}

func TestLoadFromFile_invalid(t *testing.T) {
	_, err := parseYAML([]byte("session_ttl: forever\n"))
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "session_ttl", fe.Field)

	_, err = parseYAML([]byte("session_backend: redis\n"))
	assert.ErrorIs(t, err, ErrMissingRedisURL)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
