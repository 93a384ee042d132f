package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into a fresh temp dir so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Chicago_Crimes_2012_to_2017.csv", cfg.Input.Path)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, "utf-8", cfg.Input.Encoding)
	assert.False(t, cfg.Input.LazyQuotes)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.True(t, cfg.Output.Enabled)
	assert.True(t, cfg.Output.GeoJSON)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "crimes_cleaned.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 7, cfg.Pipeline.RollingWindowDays)
	assert.Equal(t, "observed", cfg.Pipeline.RollingMode)
	assert.Equal(t, 0, cfg.HTTP.MaxRetries, "no retries unless configured")
	assert.InDelta(t, 5.0, cfg.HTTP.RateLimit, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
input:
  path: /data/crimes.csv
  delimiter: "|"
  lazy_quotes: true
store:
  driver: postgres
  database_url: postgres://localhost/crimes
pipeline:
  rolling_mode: calendar
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/crimes.csv", cfg.Input.Path)
	assert.Equal(t, "|", cfg.Input.Delimiter)
	assert.True(t, cfg.Input.LazyQuotes)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/crimes", cfg.Store.DatabaseURL)
	assert.Equal(t, "calendar", cfg.Pipeline.RollingMode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 7, cfg.Pipeline.RollingWindowDays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("CRIME_STORE_DRIVER", "none")
	t.Setenv("CRIME_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CRIME_SERVER_PORT=3000\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CRIME_SERVER_PORT") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CRIME_STORE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:    StoreConfig{Driver: "sqlite"},
			Pipeline: PipelineConfig{RollingWindowDays: 7, RollingMode: "observed"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "calendar mode", mutate: func(c *Config) { c.Pipeline.RollingMode = "calendar" }},
		{name: "bad mode", mutate: func(c *Config) { c.Pipeline.RollingMode = "weekly" }, wantErr: "rolling mode"},
		{name: "zero window", mutate: func(c *Config) { c.Pipeline.RollingWindowDays = 0 }, wantErr: "rolling_window_days"},
		{name: "bad driver", mutate: func(c *Config) { c.Store.Driver = "" }, wantErr: "store driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
