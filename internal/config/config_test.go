package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FMP_API_KEY", "k")
	t.Setenv("SCREENER_CONFIG", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "k", cfg.FMPAPIKey)
	assert.Equal(t, -10.0, cfg.PriceDropThreshold)
	assert.Equal(t, 120, cfg.PriceLookbackDays)
	assert.Equal(t, 20, cfg.InsiderLookbackDays)
	assert.Equal(t, "cache", cfg.CacheDir)
	assert.Equal(t, "results", cfg.ResultsDir)
	assert.Equal(t, "plots", cfg.PlotsDir)
	assert.True(t, cfg.CacheEnabled)
}

func TestLoadMissingKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FMP_API_KEY", "")

	_, err := Load()

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FMP_API_KEY", "")
	os.Unsetenv("FMP_API_KEY")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FMP_API_KEY=from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("FMP_API_KEY") })

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.FMPAPIKey)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "screener.yaml")
	body := `
price_drop_threshold: -25
price_lookback_days: 90
cache_backend: sqlite
results_dir: out
http_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	t.Setenv("SCREENER_CONFIG", path)
	t.Setenv("FMP_API_KEY", "k")
	t.Setenv("PRICE_LOOKBACK_DAYS", "60")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, -25.0, cfg.PriceDropThreshold)
	assert.Equal(t, 60, cfg.PriceLookbackDays)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.Equal(t, "out", cfg.ResultsDir)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoadBadNumber(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FMP_API_KEY", "k")
	t.Setenv("WORKERS", "many")

	_, err := Load()

	assert.ErrorContains(t, err, "WORKERS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero threshold", func(c *Config) { c.PriceDropThreshold = 0 }, true},
		{"positive threshold", func(c *Config) { c.PriceDropThreshold = 10 }, false},
		{"no key", func(c *Config) { c.FMPAPIKey = "" }, false},
		{"zero window", func(c *Config) { c.InsiderLookbackDays = 0 }, false},
		{"no workers", func(c *Config) { c.Workers = 0 }, false},
		{"bad backend", func(c *Config) { c.CacheBackend = "redis" }, false},
		{"yahoo prices", func(c *Config) { c.PriceProvider = "yahoo" }, true},
		{"bad provider", func(c *Config) { c.PriceProvider = "iex" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.FMPAPIKey = "k"
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
