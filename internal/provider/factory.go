package provider

import (
	"fmt"
	"strings"
	"sync"

	"github.com/julianshen/repowiki/internal/config"
)

// ProviderConstructor is a function that creates a new LLMProvider.
type ProviderConstructor func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider

var (
	registryMu sync.RWMutex
	// registry holds registered provider constructors.
	registry = map[string]ProviderConstructor{}
)

// RegisterProvider registers a provider constructor by name.
func RegisterProvider(name string, constructor ProviderConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = constructor
}

func constructor(name string) (ProviderConstructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// NewProvider creates an LLMProvider for the named OpenAI-compatible entry
// in the configuration.
func NewProvider(cfg *config.Config, name string) (LLMProvider, error) {
	ctor, ok := constructor("openai")
	if !ok {
		return nil, fmt.Errorf("openai provider not registered")
	}

	oc, ok := cfg.OpenAIProvider(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", name)
	}

	envVar := strings.ToUpper(name) + "_API_KEY"
	apiKey, err := config.ResolveAPIKey(oc.APIKeySource, oc.APIKey, envVar)
	if err != nil {
		return nil, fmt.Errorf("resolving %s API key: %w", name, err)
	}

	return ctor(oc.BaseURL, apiKey, oc.ExtraHeaders), nil
}

// Route is the provider entry and model chosen for one call.
type Route struct {
	Name  string
	Model string
}

// RouteFor picks the provider for a call. OpenRouter wins over a local
// Ollama server; otherwise the configured default is used.
func RouteFor(cfg *config.Config, useOpenRouter, localOllama bool, openRouterModel string) Route {
	switch {
	case useOpenRouter:
		model := openRouterModel
		if model == "" {
			model = cfg.Provider.OpenRouterModel
		}
		return Route{Name: "openrouter", Model: model}
	case localOllama:
		return Route{Name: "ollama", Model: cfg.Provider.OllamaModel}
	default:
		return Route{Name: cfg.Provider.Default, Model: cfg.Provider.Model}
	}
}

// Selector builds providers on first use and reuses them afterwards.
type Selector struct {
	cfg *config.Config

	mu        sync.Mutex
	providers map[string]LLMProvider
}

// NewSelector creates a Selector over cfg.
func NewSelector(cfg *config.Config) *Selector {
	return &Selector{cfg: cfg, providers: map[string]LLMProvider{}}
}

// Select returns the provider and model for one call.
func (s *Selector) Select(useOpenRouter, localOllama bool, openRouterModel string) (LLMProvider, string, error) {
	route := RouteFor(s.cfg, useOpenRouter, localOllama, openRouterModel)

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.providers[route.Name]; ok {
		return p, route.Model, nil
	}
	p, err := NewProvider(s.cfg, route.Name)
	if err != nil {
		return nil, "", err
	}
	s.providers[route.Name] = p
	return p, route.Model, nil
}
