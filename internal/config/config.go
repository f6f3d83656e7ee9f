// Package config resolves commitbot settings from flags, environment, an
// optional TOML file and defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hoanghonghuy/commitbot/internal/chat"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	// NoModel disables every backend call.
	NoModel = "none"

	DefaultProvider              = ProviderOpenAI
	DefaultModel                 = "gpt-5-nano"
	DefaultMaxConcurrentRequests = 4
	DefaultStream                = true
)

const (
	envPrefix  = "COMMITBOT"
	configType = "toml"
)

// Config is the resolved configuration handed to the rest of the program.
type Config struct {
	Provider              string   `mapstructure:"provider"`
	Model                 string   `mapstructure:"model"`
	BaseURL               string   `mapstructure:"base_url"`
	APIKey                string   `mapstructure:"api_key"`
	MaxConcurrentRequests int      `mapstructure:"max_concurrent_requests"`
	Stream                bool     `mapstructure:"stream"`
	IgnoredFiles          []string `mapstructure:"ignored_files"`
	Verbosity             int      `mapstructure:"verbosity"`
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"provider":                "provider",
	"model":                   "model",
	"base_url":                "base-url",
	"api_key":                 "api-key",
	"max_concurrent_requests": "max-concurrent-requests",
	"stream":                  "stream",
}

// DefaultPath returns ~/.config/commitbot.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "commitbot.toml"), nil
}

// Load reads and validates configuration. path selects an explicit config
// file; when empty the default path is tried and a missing file is not an
// error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for editing an incomplete configuration.
func Read(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", envPrefix+"_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if flags != nil {
		if noModel, err := flags.GetBool("no-model"); err == nil && noModel {
			cfg.Model = NoModel
		}
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("base_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("max_concurrent_requests", DefaultMaxConcurrentRequests)
	v.SetDefault("stream", DefaultStream)
	v.SetDefault("ignored_files", []string{})
	v.SetDefault("verbosity", 0)
}

// ModelDisabled reports whether backend calls are switched off.
func (c *Config) ModelDisabled() bool {
	return strings.EqualFold(strings.TrimSpace(c.Model), NoModel)
}

// Validate checks the settings needed before any request is sent.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: unknown provider %q (want %s or %s)", chat.ErrConfig, c.Provider, ProviderOpenAI, ProviderOllama)
	}
	if c.MaxConcurrentRequests < 0 {
		return fmt.Errorf("%w: max_concurrent_requests must not be negative, got %d", chat.ErrConfig, c.MaxConcurrentRequests)
	}
	if c.ModelDisabled() {
		return nil
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is empty", chat.ErrConfig)
	}
	if c.Provider == ProviderOpenAI && strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: OpenAI API key missing; set OPENAI_API_KEY, --api-key or api_key in the config file", chat.ErrConfig)
	}
	return nil
}

// Save writes cfg to path, or to the default path when path is empty.
func Save(cfg Config, path string) (string, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("provider", cfg.Provider)
	v.Set("model", cfg.Model)
	if cfg.BaseURL != "" {
		v.Set("base_url", cfg.BaseURL)
	}
	if cfg.APIKey != "" {
		v.Set("api_key", cfg.APIKey)
	}
	v.Set("max_concurrent_requests", cfg.MaxConcurrentRequests)
	v.Set("stream", cfg.Stream)
	if len(cfg.IgnoredFiles) > 0 {
		v.Set("ignored_files", cfg.IgnoredFiles)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
