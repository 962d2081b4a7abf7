package ai

import "context"

// Runtime is implemented by chat backends such as OpenRouter, Anthropic and
// a local Ollama.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
	ProviderLocal      = "local"
)
