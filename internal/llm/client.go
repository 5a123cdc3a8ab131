package llm

import (
	"context"
	"fmt"
)

// Image is an inline image attached to a multimodal request
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is a single completion call
type Request struct {
	Prompt    string
	Images    []Image
	Tier      ModelTier
	MaxTokens int
}

// Client is the language-model capability. Implementations are safe for
// concurrent use.
type Client interface {
	// Complete sends the prompt, and any images, and returns the text reply
	Complete(ctx context.Context, req Request) (string, error)
	// Provider reports which backend serves the client
	Provider() Provider
	// GetModel returns the provider model used for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// Credentials carries everything a provider may need to authenticate
type Credentials struct {
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	VertexProject   string
	VertexLocation  string
}

// Has reports whether credentials for p are present
func (c Credentials) Has(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderAnthropic:
		return c.AnthropicAPIKey != ""
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderVertex:
		return c.VertexProject != ""
	}
	return false
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, creds Credentials) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, creds.GeminiAPIKey)
	case ProviderVertex:
		return NewVertexClient(ctx, config, creds.VertexProject, creds.VertexLocation)
	case ProviderAnthropic:
		return NewAnthropicClient(config, creds.AnthropicAPIKey)
	case ProviderOpenAI:
		return NewOpenAIClient(config, creds.OpenAIAPIKey, creds.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// Select walks the priority list and builds a client for the first provider
// whose credentials are present. configs may override the default model set
// of a provider.
func Select(ctx context.Context, order []Provider, creds Credentials, configs map[Provider]*Config) (Client, error) {
	if len(order) == 0 {
		order = DefaultProviderOrder
	}

	for _, p := range order {
		if !creds.Has(p) {
			continue
		}
		cfg := configs[p]
		if cfg == nil {
			cfg = DefaultConfigFor(p)
		}
		return NewClient(ctx, cfg, creds)
	}
	return nil, &NoProviderError{Tried: order}
}

func maxTokens(req Request, cfg *Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if cfg != nil && cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return DefaultMaxTokens
}

func modelFor(cfg *Config, tier ModelTier) (string, error) {
	if tier == "" {
		tier = TierStandard
	}
	model := cfg.GetModel(tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	return model, nil
}
