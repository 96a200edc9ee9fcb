package ai

import (
	"context"
	"log"

	"essaysmaster_backend/internals/configs"
)

// NewProvider picks the configured backend. A missing key yields an
// Unconfigured provider so the service still boots and fails rounds cleanly.
func NewProvider(cfg configs.AIConfig) Provider {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case configs.ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case configs.ProviderGemini:
		p, err = NewGeminiProvider(cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	default:
		p, err = NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, nil)
	}
	if err != nil {
		log.Printf("[AI] ⚠️ provider %q unavailable: %v", cfg.Provider, err)
		return Unconfigured{Provider: cfg.Provider}
	}
	return p
}

type Unconfigured struct {
	Provider string
}

func (u Unconfigured) Name() string { return u.Provider }

func (u Unconfigured) Complete(ctx context.Context, p Prompt) (string, error) {
	return "", ErrNotConfigured
}
