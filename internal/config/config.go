// Package config resolves runtime settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "OPENROUTER"

	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "minimax/minimax-m2:free"
	DefaultTimeout = 60 * time.Second
)

// Config holds everything the CLI and Lambda entrypoints need.
type Config struct {
	BaseURL     string
	APIKey      string
	APIKeyParam string // SSM parameter holding the key, used when APIKey is empty

	Model        string
	SystemPrompt string
	Temperature  *float64
	Timeout      time.Duration

	// OpenRouter app attribution headers; optional.
	Referer string
	Title   string

	TranscriptTable string

	Log LogConfig
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

// NewViper returns a viper instance with defaults and environment binding.
// When configFile is non-empty it is read; its format follows the extension.
//
// Precedence (highest to lowest): bound flags, OPENROUTER_* environment,
// config file, defaults.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// unprefixed names are still honoured for the two settings that used them
	if err := v.BindEnv("system_prompt", EnvPrefix+"_SYSTEM_PROMPT", "SYSTEM_PROMPT"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}
	if err := v.BindEnv("temperature", EnvPrefix+"_TEMPERATURE", "TEMPERATURE"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"base-url":         "base_url",
	"api-key-param":    "api_key_param",
	"model":            "model",
	"system":           "system_prompt",
	"temperature":      "temperature",
	"timeout":          "timeout",
	"referer":          "referer",
	"title":            "title",
	"transcript-table": "transcript_table",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

// BindFlags binds whichever of the known flags exist in fs. Flags only
// override lower layers when explicitly set.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", flag, err)
		}
	}
	return nil
}

// Load reads the resolved settings out of v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:         strings.TrimSpace(v.GetString("base_url")),
		APIKey:          strings.TrimSpace(v.GetString("api_key")),
		APIKeyParam:     strings.TrimSpace(v.GetString("api_key_param")),
		Model:           strings.TrimSpace(v.GetString("model")),
		SystemPrompt:    v.GetString("system_prompt"),
		Timeout:         v.GetDuration("timeout"),
		Referer:         v.GetString("referer"),
		Title:           v.GetString("title"),
		TranscriptTable: strings.TrimSpace(v.GetString("transcript_table")),
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		},
	}
	if raw := strings.TrimSpace(v.GetString("temperature")); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: temperature %q is not a number", raw)
		}
		cfg.Temperature = &t
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later in a less
// obvious way. A missing credential is not an error here.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: base_url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if c.Model == "" {
		return errors.New("config: model must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("config: temperature %v out of range [0,2]", *c.Temperature)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// HasCredential reports whether any key source is configured.
func (c Config) HasCredential() bool {
	return c.APIKey != "" || c.APIKeyParam != ""
}
