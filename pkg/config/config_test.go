package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Run.SeedURL = "https://www.google.com/maps/search/plumbers+in+leeds"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Listing.StableRounds)
	assert.Equal(t, 10*time.Second, cfg.Browser.PanelTimeout)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, "file", cfg.Progress.Backend)
	assert.Empty(t, cfg.Progress.Key, "the key is derived from the seed URL unless set")
	assert.Equal(t, "jsonl", cfg.Sink.Type)
	assert.Equal(t, `h1.DUwDvf`, cfg.Browser.Selectors.Title)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLACEHARVEST_SEED_URL", "https://maps.example.com/search/cafes")
	t.Setenv("PLACEHARVEST_QUOTA", "7")
	t.Setenv("PLACEHARVEST_HEADLESS", "false")
	t.Setenv("PLACEHARVEST_PROGRESS_BACKEND", "sqlite")
	t.Setenv("PLACEHARVEST_SINK", "csv")
	t.Setenv("PLACEHARVEST_SINK_PATH", "/tmp/places.csv")
	t.Setenv("PLACEHARVEST_OPENAI_API_KEY", "sk-test")
	t.Setenv("PLACEHARVEST_ACTIONS_PER_MINUTE", "12")
	t.Setenv("PLACEHARVEST_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://maps.example.com/search/cafes", cfg.Run.SeedURL)
	assert.Equal(t, 7, cfg.Run.Quota)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "sqlite", cfg.Progress.Backend)
	assert.Equal(t, "csv", cfg.Sink.Type)
	assert.Equal(t, "/tmp/places.csv", cfg.Sink.Path)
	assert.Equal(t, "sk-test", cfg.Outreach.APIKey)
	assert.Equal(t, 12, cfg.RateLimit.ActionsPerMinute)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidQuota(t *testing.T) {
	t.Setenv("PLACEHARVEST_QUOTA", "many")

	err := DefaultConfig().LoadFromEnv()
	assert.ErrorContains(t, err, "PLACEHARVEST_QUOTA")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
run:
  seed_url: https://maps.example.com/search/dentists
  quota: 4
listing:
  stable_rounds: 5
  settle_interval: 250ms
browser:
  panel_timeout: 3s
  selectors:
    title: h1.custom
progress:
  backend: postgres
  dsn: postgres://localhost/harvest
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 4, cfg.Run.Quota)
	assert.Equal(t, 5, cfg.Listing.StableRounds)
	assert.Equal(t, 250*time.Millisecond, cfg.Listing.SettleInterval)
	assert.Equal(t, 3*time.Second, cfg.Browser.PanelTimeout)
	assert.Equal(t, "h1.custom", cfg.Browser.Selectors.Title)
	// untouched selectors keep their defaults
	assert.Equal(t, `div[role="feed"]`, cfg.Browser.Selectors.Feed)
	assert.Equal(t, "postgres", cfg.Progress.Backend)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("run: [unterminated"), 0644))
	assert.ErrorContains(t, cfg.LoadFromFile(bad), "failed to parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "relative seed", mutate: func(c *Config) { c.Run.SeedURL = "/maps/search/x" }, wantErr: "absolute URL"},
		{name: "zero quota", mutate: func(c *Config) { c.Run.Quota = 0 }, wantErr: "quota must be positive"},
		{name: "zero stable rounds", mutate: func(c *Config) { c.Listing.StableRounds = 0 }, wantErr: "stable rounds"},
		{name: "unknown backend", mutate: func(c *Config) { c.Progress.Backend = "redis" }, wantErr: "unknown progress backend"},
		{name: "postgres backend without dsn", mutate: func(c *Config) { c.Progress.Backend = "postgres" }, wantErr: "requires a DSN"},
		{name: "unknown sink", mutate: func(c *Config) { c.Sink.Type = "xml" }, wantErr: "unknown sink type"},
		{name: "csv sink without path", mutate: func(c *Config) { c.Sink.Type = "csv"; c.Sink.Path = "" }, wantErr: "sink path"},
		{name: "bad strategy", mutate: func(c *Config) { c.RateLimit.Strategy = "leaky" }, wantErr: "rate limit strategy"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid log level"},
		{name: "missing title selector", mutate: func(c *Config) { c.Browser.Selectors.Title = "" }, wantErr: "selectors are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Run.Quota = -1
	cfg.Logging.Level = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota must be positive")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := validConfig()
	cfg.Outreach.Services = []string{"branding"}
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg.Run.SeedURL, loaded.Run.SeedURL)
	assert.Equal(t, []string{"branding"}, loaded.Outreach.Services)
	assert.Equal(t, cfg.Browser.EscapeSettle, loaded.Browser.EscapeSettle)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"seed-url":  "https://maps.example.com/search/bakeries",
		"quota":     9,
		"timeout":   5 * time.Minute,
		"headless":  false,
		"proxy":     "http://127.0.0.1:8080",
		"sink":      "csv",
		"sink-path": "out.csv",
		"outreach":  false,
		"log-level": "warn",
	})

	assert.Equal(t, "https://maps.example.com/search/bakeries", cfg.Run.SeedURL)
	assert.Equal(t, 9, cfg.Run.Quota)
	assert.Equal(t, 5*time.Minute, cfg.Run.Timeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Browser.ProxyServer)
	assert.Equal(t, "csv", cfg.Sink.Type)
	assert.Equal(t, "out.csv", cfg.Sink.Path)
	assert.False(t, cfg.Outreach.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run:\n  quota: 3\n  seed_url: https://maps.example.com/a\n"), 0644))
	t.Setenv("PLACEHARVEST_QUOTA", "6")

	cfg, err := Load(path, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Run.Quota)

	cfg, err = Load(path, map[string]interface{}{"quota": 11})
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Run.Quota)

	t.Setenv("PLACEHARVEST_LOG_LEVEL", "verbose")
	_, err = Load(path, nil)
	assert.ErrorContains(t, err, "validation failed")
}
