package ai

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OpenRouter
	APIKey string
	// Anthropic
	AnthropicAPIKey string
	BaseURL         string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[strings.ToLower(name)] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[strings.ToLower(name)]; ok {
		return f(cfg), true
	}
	return nil, false
}

// MustRuntime is GetRuntime with an error naming the known providers.
func MustRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	if rt, ok := GetRuntime(name, cfg); ok {
		return rt, nil
	}
	return nil, fmt.Errorf("unknown provider %q (known: %s)", name, strings.Join(Providers(), ", "))
}

// Providers lists registered provider names.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		if c.BaseURL != "" {
			return NewClientWithBaseURL(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay, c.BaseURL)
		}
		return NewClient(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
	RegisterRuntime(ProviderAnthropic, func(c RuntimeConfig) Runtime {
		return NewAnthropicClient(c.AnthropicAPIKey, c.BaseURL, c.HTTPTimeout, c.RetryMax)
	})
	ollama := func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	}
	RegisterRuntime(ProviderOllama, ollama)
	RegisterRuntime(ProviderLocal, ollama)
}
