// Package config loads settings from an optional YAML file, the
// environment and a .env file.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/dispatch"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/ingest"
	"github.com/thywilljoshua/urdu-link/internal/observability"
	"github.com/thywilljoshua/urdu-link/internal/raster"
)

const EnvPrefix = "URDULINK"

// Config holds all configuration.
type Config struct {
	Gemini    GeminiConfig            `mapstructure:"gemini"`
	Translate TranslateConfig         `mapstructure:"translate"`
	Limits    ingest.Limits           `mapstructure:"limits"`
	Raster    raster.Options          `mapstructure:"raster"`
	Server    ServerConfig            `mapstructure:"server"`
	Store     StoreConfig             `mapstructure:"store"`
	Log       observability.LogConfig `mapstructure:"log"`
	Export    ExportConfig            `mapstructure:"export"`
}

type GeminiConfig struct {
	APIKey  string         `mapstructure:"api_key"`
	BaseURL string         `mapstructure:"base_url"`
	Models  ai.Models      `mapstructure:"models"`
	Retry   ai.RetryConfig `mapstructure:"retry"`
}

type TranslateConfig struct {
	Quality     string `mapstructure:"quality"`
	Concurrency int    `mapstructure:"concurrency"`
	// SingleFile applies the 200 MiB single-document ceiling instead of
	// the aggregate one.
	SingleFile bool `mapstructure:"single_file"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ExportConfig struct {
	PDFFont string `mapstructure:"pdf_font"`
	OutDir  string `mapstructure:"out_dir"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Models: ai.DefaultModels(),
			Retry:  ai.DefaultRetryConfig(),
		},
		Translate: TranslateConfig{
			Quality:     string(domain.QualityFast),
			Concurrency: 1,
		},
		Limits: ingest.DefaultLimits(),
		Raster: raster.DefaultOptions(),
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 10 * time.Minute,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "urdulink.db",
		},
		Log: observability.LogConfig{
			Level:  "info",
			Format: "console",
		},
		Export: ExportConfig{
			OutDir: ".",
		},
	}
}

// Load reads configFile (if non-empty) or ./urdulink.yaml when present,
// then the environment. A .env file in the working directory is loaded
// first and never overrides variables already set.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"); err != nil {
		return nil, domain.ConfigError("bind api key", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("urdulink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, domain.ConfigError(fmt.Sprintf("read config %s", configFile), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, domain.ConfigError("decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.models.fast", d.Gemini.Models.Fast)
	v.SetDefault("gemini.models.precise", d.Gemini.Models.Precise)
	v.SetDefault("gemini.models.image", d.Gemini.Models.Image)
	v.SetDefault("gemini.models.vision", d.Gemini.Models.Vision)
	v.SetDefault("gemini.models.chat", d.Gemini.Models.Chat)
	v.SetDefault("gemini.models.lite", d.Gemini.Models.Lite)
	v.SetDefault("gemini.retry.max_retries", d.Gemini.Retry.MaxRetries)
	v.SetDefault("gemini.retry.initial_backoff", d.Gemini.Retry.InitialBackoff)
	v.SetDefault("gemini.retry.max_backoff", d.Gemini.Retry.MaxBackoff)

	v.SetDefault("translate.quality", d.Translate.Quality)
	v.SetDefault("translate.concurrency", d.Translate.Concurrency)
	v.SetDefault("translate.single_file", d.Translate.SingleFile)

	v.SetDefault("limits.max_total", d.Limits.MaxTotal)
	v.SetDefault("limits.max_per_file", d.Limits.MaxPerFile)

	v.SetDefault("raster.scale", d.Raster.Scale)
	v.SetDefault("raster.quality", d.Raster.Quality)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("export.pdf_font", d.Export.PDFFont)
	v.SetDefault("export.out_dir", d.Export.OutDir)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := domain.ParseQuality(c.Translate.Quality); err != nil {
		return domain.ConfigError("translate.quality", err)
	}
	if c.Translate.Concurrency < 1 || c.Translate.Concurrency > dispatch.MaxConcurrency {
		return domain.ConfigError(fmt.Sprintf("translate.concurrency must be between 1 and %d, got %d", dispatch.MaxConcurrency, c.Translate.Concurrency), nil)
	}
	if c.Limits.MaxTotal < 0 || c.Limits.MaxPerFile < 0 {
		return domain.ConfigError("limits must not be negative", nil)
	}
	if err := c.Raster.Validate(); err != nil {
		return domain.ConfigError("raster", err)
	}
	if err := validateAddr(c.Server.Addr); err != nil {
		return err
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return domain.ConfigError("store.path is required when the store is enabled", nil)
	}
	return nil
}

func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return domain.ConfigError(fmt.Sprintf("server.addr %q", addr), err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return domain.ConfigError(fmt.Sprintf("server.addr port must be 1-65535, got %q", port), nil)
	}
	return nil
}

// SizeLimits is the ceiling for translation runs.
func (c *Config) SizeLimits() ingest.Limits {
	if c.Translate.SingleFile {
		return ingest.SingleFileLimits()
	}
	return c.Limits
}

// Quality is the validated default translation quality.
func (c *Config) Quality() domain.Quality {
	q, _ := domain.ParseQuality(c.Translate.Quality)
	return q
}

// HasAPIKey reports whether remote model calls are possible.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}
