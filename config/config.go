// Package config loads agent settings from defaults, an optional YAML file,
// a .env file and DATAGENTIC_* environment variables, in that precedence
// order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nexxia-ai/datagentic"
	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/ai/groq"
)

// DefaultModel is the Groq model used when none is configured.
const DefaultModel = "llama-3.1-8b-instant"

type Config struct {
	// APIKey authenticates against the provider. Falls back to the
	// GROQ_API_KEY environment variable.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// Model is the provider model id.
	Model string `mapstructure:"model" yaml:"model"`

	MaxLLMCalls     int `mapstructure:"max_llm_calls" yaml:"max_llm_calls"`
	MaxHistory      int `mapstructure:"max_history" yaml:"max_history"`
	ExecTimeoutSec  int `mapstructure:"exec_timeout_sec" yaml:"exec_timeout_sec"`
	SampleThreshold int `mapstructure:"sample_threshold" yaml:"sample_threshold"`
	SampleRows      int `mapstructure:"sample_rows" yaml:"sample_rows"`

	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > .env file > config file > defaults. An empty cfgFile
// falls back to config.yaml in the working directory or ~/.datagentic.
func Load(cfgFile string) (*Config, error) {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATAGENTIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so Unmarshal sees values that only exist in
	// the environment.
	v.SetDefault("api_key", "")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_llm_calls", datagentic.DefaultMaxLLMCalls)
	v.SetDefault("max_history", datagentic.DefaultMaxHistory)
	v.SetDefault("exec_timeout_sec", int(datagentic.DefaultExecTimeout/time.Second))
	v.SetDefault("sample_threshold", datagentic.DefaultSampleThreshold)
	v.SetDefault("sample_rows", datagentic.DefaultSampleRows)
	v.SetDefault("max_tokens", 512)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".datagentic"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GROQ_API_KEY")
	}
	return &c, nil
}

// Save writes the configuration to cfgFile. If cfgFile is empty it writes to
// ~/.datagentic/config.yaml, creating the directory if necessary.
func Save(c *Config, cfgFile string) error {
	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".datagentic")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports the first setting that would break a run.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key is required (set GROQ_API_KEY or api_key)")
	}
	if c.MaxLLMCalls < 1 {
		return fmt.Errorf("max_llm_calls must be at least 1, got %d", c.MaxLLMCalls)
	}
	if c.MaxHistory < 1 {
		return fmt.Errorf("max_history must be at least 1, got %d", c.MaxHistory)
	}
	if c.ExecTimeoutSec < 1 {
		return fmt.Errorf("exec_timeout_sec must be at least 1, got %d", c.ExecTimeoutSec)
	}
	if c.SampleThreshold < 1 {
		return fmt.Errorf("sample_threshold must be at least 1, got %d", c.SampleThreshold)
	}
	if c.SampleRows < 1 {
		return fmt.Errorf("sample_rows must be at least 1, got %d", c.SampleRows)
	}
	return nil
}

// ExecTimeout returns the per-execution timeout as a duration.
func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSec) * time.Second
}

// NewModel builds the Groq model described by the configuration.
func (c *Config) NewModel() *ai.Model {
	return groq.NewModel(c.Model, c.APIKey).
		WithTemperature(c.Temperature).
		WithMaxTokens(c.MaxTokens)
}

// Apply copies the run bounds onto an agent.
func (c *Config) Apply(agent *datagentic.Agent) {
	agent.MaxLLMCalls = c.MaxLLMCalls
	agent.MaxHistory = c.MaxHistory
	agent.ExecTimeout = c.ExecTimeout()
	agent.SampleThreshold = c.SampleThreshold
	agent.SampleRows = c.SampleRows
	agent.LogLevel = ParseLogLevel(c.LogLevel)
}

// ParseLogLevel maps a level name onto slog. Unknown names mean info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
