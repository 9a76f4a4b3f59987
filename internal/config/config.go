package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Provider   ProviderConfig   `toml:"provider"`
	Generation GenerationConfig `toml:"generation"`
	Repository RepositoryConfig `toml:"repository"`
	Store      StoreConfig      `toml:"store"`
}

// ServerConfig holds settings for the streaming generation endpoint.
type ServerConfig struct {
	BaseURL           string        `toml:"base_url"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"` // 0 disables limiting
}

// ProviderConfig selects how generation calls are made. In "server" mode
// every call goes to the streaming endpoint; in "direct" mode calls go to an
// OpenAI-compatible API.
type ProviderConfig struct {
	Mode    string                   `toml:"mode"`
	Default string                   `toml:"default"`
	Model   string                   `toml:"model"`
	OpenAI  []OpenAICompatibleConfig `toml:"openai_compatible"`

	UseOpenRouter   bool   `toml:"use_openrouter"`
	OpenRouterModel string `toml:"openrouter_model"`
	LocalOllama     bool   `toml:"local_ollama"`
	OllamaModel     string `toml:"ollama_model"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name"`
	BaseURL      string            `toml:"base_url"`
	APIKeySource string            `toml:"api_key_source"`
	APIKey       string            `toml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// GenerationConfig controls page scheduling.
type GenerationConfig struct {
	MaxConcurrent int           `toml:"max_concurrent"`
	PageTimeout   time.Duration `toml:"page_timeout"`
	Language      string        `toml:"language"`
}

// RepositoryConfig holds access tokens for the hosting providers.
type RepositoryConfig struct {
	GitHub    TokenConfig `toml:"github"`
	GitLab    TokenConfig `toml:"gitlab"`
	Bitbucket TokenConfig `toml:"bitbucket"`
}

// TokenConfig describes where a repository access token comes from.
type TokenConfig struct {
	TokenSource string `toml:"token_source"`
	Token       string `toml:"token"`
}

// StoreConfig holds settings for the run cache.
type StoreConfig struct {
	Path string `toml:"path"` // empty uses the default location
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8001",
			Timeout: 15 * time.Minute,
		},
		Provider: ProviderConfig{
			Mode:            "server",
			Default:         "openai",
			Model:           "gpt-4o",
			OpenRouterModel: "openai/gpt-4o",
			OllamaModel:     "qwen3:1.7b",
			OpenAI: []OpenAICompatibleConfig{
				{Name: "openai", BaseURL: "https://api.openai.com/v1", APIKeySource: "env"},
				{Name: "openrouter", BaseURL: "https://openrouter.ai/api/v1", APIKeySource: "env"},
				{Name: "ollama", BaseURL: "http://localhost:11434/v1", APIKeySource: "none"},
			},
		},
		Generation: GenerationConfig{
			MaxConcurrent: 1,
			PageTimeout:   10 * time.Minute,
			Language:      "en",
		},
		Repository: RepositoryConfig{
			GitHub:    TokenConfig{TokenSource: "env"},
			GitLab:    TokenConfig{TokenSource: "env"},
			Bitbucket: TokenConfig{TokenSource: "env"},
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	// Configured providers replace the default list.
	cfg.Provider.OpenAI = nil
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if len(cfg.Provider.OpenAI) == 0 {
		cfg.Provider.OpenAI = DefaultConfig().Provider.OpenAI
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	switch c.Provider.Mode {
	case "server", "direct":
	default:
		return fmt.Errorf("provider.mode must be \"server\" or \"direct\", got %q", c.Provider.Mode)
	}
	if c.Generation.MaxConcurrent < 1 {
		return fmt.Errorf("generation.max_concurrent must be at least 1, got %d", c.Generation.MaxConcurrent)
	}
	if c.Generation.PageTimeout < 0 {
		return fmt.Errorf("generation.page_timeout must not be negative")
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("server.requests_per_second must not be negative")
	}
	return nil
}

// OpenAIProvider returns the OpenAI-compatible entry with the given name.
func (c *Config) OpenAIProvider(name string) (OpenAICompatibleConfig, bool) {
	for _, oc := range c.Provider.OpenAI {
		if oc.Name == name {
			return oc, true
		}
	}
	return OpenAICompatibleConfig{}, false
}
