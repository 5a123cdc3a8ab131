package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, DefaultMaxTokens, config.MaxTokens)
}

func TestDefaultConfigFor(t *testing.T) {
	for _, p := range []Provider{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderVertex} {
		cfg := DefaultConfigFor(p)
		assert.Equal(t, p, cfg.Provider)
		assert.NotEmpty(t, cfg.GetModel(TierAdvanced), "provider %s", p)
	}
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}
	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
}

func TestParseProviders(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Provider
		wantErr  bool
	}{
		{"ordered list", "anthropic,openai,gemini", []Provider{ProviderAnthropic, ProviderOpenAI, ProviderGemini}, false},
		{"spaces and case", " OpenAI , vertex ", []Provider{ProviderOpenAI, ProviderVertex}, false},
		{"duplicates dropped", "gemini,gemini,openai", []Provider{ProviderGemini, ProviderOpenAI}, false},
		{"empty", "", nil, false},
		{"unknown", "gemini,cohere", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProviders(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSelect_FirstProviderWithCredentials(t *testing.T) {
	creds := Credentials{OpenAIAPIKey: "sk-test", AnthropicAPIKey: "ak-test"}

	client, err := Select(context.Background(), []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic}, creds, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, client.Provider())
	assert.Equal(t, "gpt-4o", client.GetModel(TierStandard))
}

func TestSelect_UsesOverrides(t *testing.T) {
	creds := Credentials{AnthropicAPIKey: "ak-test"}
	overrides := map[Provider]*Config{
		ProviderAnthropic: DefaultConfigFor(ProviderAnthropic).WithModel(TierAdvanced, "claude-custom"),
	}

	client, err := Select(context.Background(), nil, creds, overrides)
	require.NoError(t, err)
	assert.Equal(t, "claude-custom", client.GetModel(TierAdvanced))
}

func TestSelect_NoCredentials(t *testing.T) {
	_, err := Select(context.Background(), []Provider{ProviderGemini, ProviderOpenAI}, Credentials{}, nil)
	var npe *NoProviderError
	require.ErrorAs(t, err, &npe)
	assert.Contains(t, err.Error(), "gemini, openai")
}

func TestCredentialsHas(t *testing.T) {
	creds := Credentials{VertexProject: "proj"}
	assert.True(t, creds.Has(ProviderVertex))
	assert.False(t, creds.Has(ProviderGemini))
	assert.False(t, creds.Has(Provider("other")))
}
