package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks chat completions. Gemini is served by the same
// type through its OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
	// Gemini's compatibility layer only understands max_tokens.
	legacyMaxTokens bool
}

func NewOpenAIProvider(apiKey, model, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is empty", ErrNotConfigured)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	log.Printf("[AI] Initializing OpenAI provider model=%s", model)
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   "openai",
	}, nil
}

func NewGeminiProvider(apiKey, model, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is empty", ErrNotConfigured)
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	log.Printf("[AI] Initializing Gemini provider model=%s", model)
	return &OpenAIProvider{
		client:          openai.NewClientWithConfig(cfg),
		model:           model,
		name:            "gemini",
		legacyMaxTokens: true,
	}, nil
}

func (o *OpenAIProvider) Name() string { return o.name }

func (o *OpenAIProvider) Complete(ctx context.Context, p Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
	}
	if p.MaxTokens > 0 {
		if o.legacyMaxTokens {
			req.MaxTokens = p.MaxTokens
		} else {
			req.MaxCompletionTokens = p.MaxTokens
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s API status %d: %s", o.name, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%s API call failed: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", o.name)
	}
	return resp.Choices[0].Message.Content, nil
}
