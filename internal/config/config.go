// Package config loads crime-etl configuration from config.yaml, .env, and CRIME_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig describes the raw incident source.
type InputConfig struct {
	// Path is a local file path or an http(s):// or ftp:// URL.
	Path       string `yaml:"path" mapstructure:"path"`
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
	LazyQuotes bool   `yaml:"lazy_quotes" mapstructure:"lazy_quotes"`
	Sheet      string `yaml:"sheet" mapstructure:"sheet"`
	TempDir    string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// OutputConfig configures the flat-file exports.
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	GeoJSON bool   `yaml:"geojson" mapstructure:"geojson"`
}

// StoreConfig configures the relational store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// PipelineConfig configures feature engineering.
type PipelineConfig struct {
	RollingWindowDays int    `yaml:"rolling_window_days" mapstructure:"rolling_window_days"`
	RollingMode       string `yaml:"rolling_mode" mapstructure:"rolling_mode"`
}

// HTTPConfig configures remote input downloads.
type HTTPConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the dashboard data API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml, and the environment.
func Load() (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CRIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("input.path", "Chicago_Crimes_2012_to_2017.csv")
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("input.lazy_quotes", false)
	v.SetDefault("input.temp_dir", "/tmp/crime-etl")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.enabled", true)
	v.SetDefault("output.geojson", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crimes_cleaned.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("pipeline.rolling_window_days", 7)
	v.SetDefault("pipeline.rolling_mode", "observed")
	v.SetDefault("http.user_agent", "crime-etl/1.0")
	v.SetDefault("http.timeout_secs", 300)
	v.SetDefault("http.max_retries", 0)
	v.SetDefault("http.rate_limit", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		return eris.Errorf("config: unsupported store driver %q (valid: sqlite, postgres, none)", c.Store.Driver)
	}
	switch c.Pipeline.RollingMode {
	case "observed", "calendar":
	default:
		return eris.Errorf("config: unsupported rolling mode %q (valid: observed, calendar)", c.Pipeline.RollingMode)
	}
	if c.Pipeline.RollingWindowDays < 1 {
		return eris.Errorf("config: rolling_window_days must be >= 1, got %d", c.Pipeline.RollingWindowDays)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
