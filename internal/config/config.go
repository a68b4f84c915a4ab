// Package config loads quill's settings from the environment and an optional
// YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned by Validate when no model credential is configured.
var ErrMissingAPIKey = llm.ErrMissingAPIKey

// Config is the resolved configuration. Keys are shared by the YAML file
// and, upper-cased with a QUILL_ prefix, by the environment.
type Config struct {
	APIBaseURL       string        `mapstructure:"api_base_url"`
	OpenRouterAPIKey string        `mapstructure:"openrouter_api_key"`
	OpenRouterModel  string        `mapstructure:"openrouter_model"`
	LLMBaseURL       string        `mapstructure:"llm_base_url"`
	LLMTimeout       time.Duration `mapstructure:"llm_timeout"`
	SearchURL        string        `mapstructure:"search_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	SearchDelay      time.Duration `mapstructure:"search_delay"`
	ExtractDelay     time.Duration `mapstructure:"extract_delay"`
	EnhanceDelay     time.Duration `mapstructure:"enhance_delay"`
	ReferenceCount   int           `mapstructure:"reference_count"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float32       `mapstructure:"temperature"`
	Fingerprint      string        `mapstructure:"fingerprint"`
	RespectRobots    bool          `mapstructure:"respect_robots"`
	ProxyFile        string        `mapstructure:"proxy_file"`
	HistoryDSN       string        `mapstructure:"history_dsn"`
	LogLevel         string        `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"api_base_url":       "http://localhost:8000/api",
	"openrouter_api_key": "",
	"openrouter_model":   llm.DefaultModel,
	"llm_base_url":       llm.DefaultBaseURL,
	"llm_timeout":        "0s",
	"search_url":         "https://www.google.com/search",
	"request_timeout":    "10s",
	"search_delay":       "1s",
	"extract_delay":      "1s",
	"enhance_delay":      "2s",
	"reference_count":    2,
	"max_tokens":         4000,
	"temperature":        0.7,
	"fingerprint":        string(fingerprint.ProfileGo),
	"respect_robots":     false,
	"proxy_file":         "",
	"history_dsn":        "",
	"log_level":          "info",
}

// The article store and model settings keep their unprefixed names for
// compatibility with existing deployments.
var legacyEnv = map[string]string{
	"api_base_url":       "API_BASE_URL",
	"openrouter_api_key": "OPENROUTER_API_KEY",
	"openrouter_model":   "OPENROUTER_MODEL",
}

// Load reads configuration from defaults, then the YAML file at path (when
// non-empty), then the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "QUILL_"+strings.ToUpper(key), env); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return c, nil
}

// Validate reports the first setting that would stop a run from starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OpenRouterAPIKey) == "" {
		return ErrMissingAPIKey
	}
	return c.ValidateTransport()
}

// ValidateTransport checks every setting except the model credential.
func (c Config) ValidateTransport() error {
	var errs []error
	for name, raw := range map[string]string{
		"api_base_url": c.APIBaseURL,
		"llm_base_url": c.LLMBaseURL,
		"search_url":   c.SearchURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: %s %q is not an absolute URL", name, raw))
		}
	}
	if c.ReferenceCount <= 0 {
		errs = append(errs, fmt.Errorf("config: reference_count must be positive, got %d", c.ReferenceCount))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: request_timeout must be positive, got %s", c.RequestTimeout))
	}
	for name, d := range map[string]time.Duration{
		"llm_timeout":   c.LLMTimeout,
		"search_delay":  c.SearchDelay,
		"extract_delay": c.ExtractDelay,
		"enhance_delay": c.EnhanceDelay,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("config: %s must not be negative, got %s", name, d))
		}
	}
	if _, err := fingerprint.ParseProfile(c.Fingerprint); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}
