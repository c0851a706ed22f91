package ai

import (
	"context"
	"fmt"
	"time"
)

// ProviderConfig selects and configures the AI backend.
type ProviderConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	CompatURL    string
	CompatAPIKey string
	CompatModel  string
	Timeout      time.Duration
}

// NewProvider builds the configured backend. Supported names are "gemini"
// and "openai" (any OpenAI-compatible endpoint).
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout)
	case "openai", "deepseek":
		return NewOpenAICompatProvider(cfg.CompatURL, cfg.CompatAPIKey, cfg.CompatModel, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
