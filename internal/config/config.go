// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the agent configuration.
type Config struct {
	LLM       LLMConfig       `toml:"llm"`       // Reasoning model for research and planning
	SmallLLM  LLMConfig       `toml:"small_llm"` // Fast/cheap model for classification and verification
	Search    SearchConfig    `toml:"search"`    // Web search provider
	Telemetry TelemetryConfig `toml:"telemetry"`
	Storage   StorageConfig   `toml:"storage"`  // Persistent memory and session settings
	Timeouts  TimeoutsConfig  `toml:"timeouts"` // Network and shell timeouts
	Safety    SafetyConfig    `toml:"safety"`   // Shell execution restrictions
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider     string `toml:"provider"`
	Model        string `toml:"model"`
	APIKeyEnv    string `toml:"api_key_env"`
	MaxTokens    int    `toml:"max_tokens"`
	BaseURL      string `toml:"base_url"`      // Custom API endpoint (OpenRouter, LiteLLM, Ollama, LMStudio)
	Thinking     string `toml:"thinking"`      // Thinking level: auto|off|low|medium|high
	MaxRetries   int    `toml:"max_retries"`   // Max retry attempts (default 5)
	RetryBackoff string `toml:"retry_backoff"` // Max backoff duration (default "60s")
}

// SearchConfig contains web search provider settings.
type SearchConfig struct {
	APIKeyEnv  string `toml:"api_key_env"` // Env var holding the Tavily API key (default TAVILY_API_KEY)
	BaseURL    string `toml:"base_url"`    // Custom search endpoint
	MaxResults int    `toml:"max_results"` // Results per query (default 5)
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
	Protocol string `toml:"protocol"` // grpc (default) or http
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path          string `toml:"path"`           // Base directory for memory and session logs
	PersistMemory bool   `toml:"persist_memory"` // true = memory survives across runs
}

// TimeoutsConfig contains timeout settings in seconds.
type TimeoutsConfig struct {
	Shell     int `toml:"shell"`      // Shell command timeout (default 30)
	WebSearch int `toml:"web_search"` // Web search timeout (default 30)
	Reasoning int `toml:"reasoning"`  // Per reasoning-call bound (default 120)
}

// SafetyConfig restricts what shell steps may run.
type SafetyConfig struct {
	ExtraDeny []string `toml:"extra_deny"` // Substrings blocked in addition to the built-in deny list
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		LLM: LLMConfig{
			MaxTokens: 4096,
		},
		Search: SearchConfig{
			APIKeyEnv:  "TAVILY_API_KEY",
			MaxResults: 5,
		},
		Storage: StorageConfig{
			Path:          "~/.local/instant-agent",
			PersistMemory: true,
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
		Timeouts: TimeoutsConfig{
			Shell:     30,
			WebSearch: 30,
			Reasoning: 120,
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from agent.toml in the current
// directory, falling back to defaults when the file is absent.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, "agent.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// ExpandPath resolves a leading ~ in the storage path.
func ExpandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// APIKey returns the API key for an LLM section from its configured
// environment variable, or the provider's default env var.
func (l LLMConfig) APIKey() string {
	envVar := l.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(l.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// SearchAPIKey returns the web search API key.
func (c *Config) SearchAPIKey() string {
	if c.Search.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Search.APIKeyEnv)
}

// SmallOrDefault returns the small_llm section, falling back to the
// main llm section for any unset field.
func (c *Config) SmallOrDefault() LLMConfig {
	small := c.SmallLLM
	if small.Model == "" {
		return c.LLM
	}
	if small.Provider == "" {
		small.Provider = c.LLM.Provider
	}
	if small.APIKeyEnv == "" {
		small.APIKeyEnv = c.LLM.APIKeyEnv
	}
	if small.MaxTokens == 0 {
		small.MaxTokens = c.LLM.MaxTokens
	}
	if small.BaseURL == "" {
		small.BaseURL = c.LLM.BaseURL
	}
	return small
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return ""
	}
}
