package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Store.DefaultTTL)
	assert.Equal(t, "admin", cfg.Auth.Username)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployboard.yaml")
	writeFile(t, path, `
serverAddress: ":9090"
logLevel: debug
store:
  driver: badger
  badgerPath: /tmp/db
  defaultTTL: 48h
corsOrigins: ["https://a.example"]
`)
	t.Setenv("DEPLOYBOARD_SERVER_ADDRESS", ":7070")
	t.Setenv("DEPLOYBOARD_CORS_ORIGINS", "https://b.example, https://c.example")
	t.Setenv("DEPLOYBOARD_ENABLE_METRICS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ServerAddress)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, 48*time.Hour, cfg.Store.DefaultTTL)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, "admin", cfg.Auth.Password, "unset fields keep their defaults")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }},
		{"badger without path", func(c *Config) { c.Store.Driver = "badger"; c.Store.BadgerPath = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero ttl", func(c *Config) { c.Store.DefaultTTL = 0 }},
		{"production with dev secret", func(c *Config) { c.Environment = "production" }},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "store: [")
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployboard.yaml")
	writeFile(t, path, "logLevel: info\n")
	initial, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	changed := make(chan *Config, 4)
	w.OnChange(func(c *Config) { changed <- c })
	w.Start()
	defer w.Stop()

	writeFile(t, path, "logLevel: debug\n")

	select {
	case c := <-changed:
		assert.Equal(t, "debug", c.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
	assert.Equal(t, "debug", w.Current().LogLevel)

	writeFile(t, path, "logLevel: shouting\n")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "debug", w.Current().LogLevel, "invalid file keeps the current config")
}
