package zipdemographics

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// fileConfig mirrors the YAML/JSON/TOML settings file. All fields are
// optional except the API key, which may also come from the
// APIVERVE_API_KEY environment variable.
type fileConfig struct {
	APIKey       string            `mapstructure:"api_key"`
	BaseURL      string            `mapstructure:"base_url"`
	Method       string            `mapstructure:"method"`
	Secure       bool              `mapstructure:"secure"`
	Debug        bool              `mapstructure:"debug"`
	MaxRetries   int               `mapstructure:"max_retries"`
	RetryDelayMS int               `mapstructure:"retry_delay_ms"`
	TimeoutMS    int               `mapstructure:"timeout_ms"`
	Headers      map[string]string `mapstructure:"headers"`
}

// LoadConfig reads client settings from a file and the environment and
// returns the API key plus the matching options. An empty path reads the
// environment only.
func LoadConfig(path string) (string, []Option, error) {
	v := viper.New()
	v.SetDefault("secure", true)
	v.SetDefault("retry_delay_ms", int(defaultRetryDelay/time.Millisecond))

	v.SetEnvPrefix("APIVERVE")
	if err := v.BindEnv("api_key"); err != nil {
		return "", nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return "", nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	opts := []Option{
		WithSecureTransport(cfg.Secure),
		WithDebug(cfg.Debug),
		WithMaxRetries(cfg.MaxRetries),
		WithRetryDelay(time.Duration(cfg.RetryDelayMS) * time.Millisecond),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Method != "" {
		opts = append(opts, WithMethod(cfg.Method))
	}
	if cfg.TimeoutMS > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		}))
	}
	for key, value := range cfg.Headers {
		opts = append(opts, WithHeader(key, value))
	}

	return cfg.APIKey, opts, nil
}

// NewClientFromConfig builds a client from a settings file and the
// environment. See LoadConfig for the recognized keys.
func NewClientFromConfig(path string, extra ...Option) (*Client, error) {
	apiKey, opts, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewClient(apiKey, append(opts, extra...)...)
}
