// Package llm provides the language-model capability used for structure
// analysis and document generation, with one client per provider.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short, cheap calls
	TierLite ModelTier = "lite"
	// TierStandard is for structured output such as structure analysis
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long-form document generation
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is Google Gemini through the Gemini API
	ProviderGemini Provider = "gemini"
	// ProviderVertex is Gemini served from Vertex AI
	ProviderVertex Provider = "vertex"
	// ProviderOpenAI is the OpenAI chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic is the Anthropic messages API
	ProviderAnthropic Provider = "anthropic"
)

// DefaultProviderOrder is tried when no explicit priority list is configured
var DefaultProviderOrder = []Provider{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderVertex}

// DefaultMaxTokens bounds the output of a single call when the request sets no limit
const DefaultMaxTokens = 8192

// Config holds the model configuration for one provider
type Config struct {
	Provider  Provider
	Models    map[ModelTier]string
	MaxTokens int
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultConfigFor(ProviderGemini)
}

// DefaultConfigFor returns the default model set of a provider
func DefaultConfigFor(p Provider) *Config {
	var models map[ModelTier]string
	switch p {
	case ProviderAnthropic:
		models = map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-latest",
			TierStandard: "claude-3-7-sonnet-latest",
			TierAdvanced: "claude-3-7-sonnet-latest",
		}
	case ProviderOpenAI:
		models = map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o",
			TierAdvanced: "gpt-4o",
		}
	default:
		models = map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		}
	}
	return &Config{Provider: p, Models: models, MaxTokens: DefaultMaxTokens}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:  c.Provider,
		Models:    make(map[ModelTier]string),
		MaxTokens: c.MaxTokens,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// ParseProvider validates a provider name
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderGemini, ProviderVertex, ProviderOpenAI, ProviderAnthropic:
		return p, nil
	}
	return "", fmt.Errorf("unknown LLM provider %q", s)
}

// ParseProviders parses a comma-separated priority list such as
// "anthropic,openai,gemini". Duplicates are dropped, keeping the first.
func ParseProviders(s string) ([]Provider, error) {
	var out []Provider
	seen := map[Provider]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := ParseProvider(part)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
