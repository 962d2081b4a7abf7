package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Clustering defaults
	Algorithm  string  `mapstructure:"algorithm" yaml:"algorithm"`
	K          int     `mapstructure:"k" yaml:"k"`
	Eps        float64 `mapstructure:"eps" yaml:"eps"`
	MinSamples int     `mapstructure:"min_samples" yaml:"min_samples"`
	Seed       int64   `mapstructure:"seed" yaml:"seed"`
	NInit      int     `mapstructure:"n_init" yaml:"n_init"`
	MaxIter    int     `mapstructure:"max_iter" yaml:"max_iter"`
	ElbowMaxK  int     `mapstructure:"elbow_max_k" yaml:"elbow_max_k"`
	// Loading
	Missing       string `mapstructure:"missing" yaml:"missing"`
	UploadsDir    string `mapstructure:"uploads_dir" yaml:"uploads_dir"`
	UploadPattern string `mapstructure:"upload_pattern" yaml:"upload_pattern"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`

	// Run history
	HistoryDB      string `mapstructure:"history_db" yaml:"history_db"`
	HistoryEnabled bool   `mapstructure:"history_enabled" yaml:"history_enabled"`

	// Dashboard server
	ServeAddr string `mapstructure:"serve_addr" yaml:"serve_addr"`
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size"`

	// Insights (empty provider means rule-based only)
	InsightsProvider string  `mapstructure:"insights_provider" yaml:"insights_provider"`
	InsightsModel    string  `mapstructure:"insights_model" yaml:"insights_model"`
	APIKey           string  `mapstructure:"api_key" yaml:"api_key"`
	AnthropicAPIKey  string  `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key"`
	MaxTokens        int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	PromptTokenLimit int     `mapstructure:"prompt_token_limit" yaml:"prompt_token_limit"`
	Temperature      float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`
}

// Dir returns ~/.clusterloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".clusterloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.clusterloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CLUSTERLOOM")
	v.AutomaticEnv()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v.SetDefault("algorithm", "kmeans")
	v.SetDefault("k", 3)
	v.SetDefault("eps", 0.5)
	v.SetDefault("min_samples", 5)
	v.SetDefault("seed", 0)
	v.SetDefault("n_init", 10)
	v.SetDefault("max_iter", 300)
	v.SetDefault("elbow_max_k", 10)
	v.SetDefault("missing", "drop")
	v.SetDefault("uploads_dir", filepath.Join(dir, "uploads"))
	v.SetDefault("upload_pattern", "*.{csv,tsv,xlsx}")
	v.SetDefault("output_dir", "")
	v.SetDefault("history_db", filepath.Join(dir, "history.db"))
	v.SetDefault("history_enabled", true)
	v.SetDefault("serve_addr", "127.0.0.1:8080")
	v.SetDefault("cache_size", 32)
	v.SetDefault("insights_provider", "")
	v.SetDefault("insights_model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("prompt_token_limit", 6000)
	v.SetDefault("temperature", 0.4)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// A missing file is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
