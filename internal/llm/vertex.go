package llm

import (
	"context"
	"fmt"
	"strings"

	googlegenai "google.golang.org/genai"
)

const defaultVertexLocation = "us-central1"

// VertexClient implements Client for Gemini models served from Vertex AI.
// Authentication uses application default credentials.
type VertexClient struct {
	client *googlegenai.Client
	config *Config
}

// NewVertexClient creates a client bound to a Google Cloud project
func NewVertexClient(ctx context.Context, config *Config, project, location string) (*VertexClient, error) {
	if project == "" {
		return nil, fmt.Errorf("vertex project is required")
	}
	if location == "" {
		location = defaultVertexLocation
	}

	client, err := googlegenai.NewClient(ctx, &googlegenai.ClientConfig{
		Backend:  googlegenai.BackendVertexAI,
		Project:  project,
		Location: location,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	return &VertexClient{client: client, config: config}, nil
}

// Complete generates text content through the Vertex AI backend
func (c *VertexClient) Complete(ctx context.Context, req Request) (string, error) {
	modelName, err := modelFor(c.config, req.Tier)
	if err != nil {
		return "", err
	}

	parts := []*googlegenai.Part{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, &googlegenai.Part{InlineData: &googlegenai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
	}

	temperature := float32(0.1)
	resp, err := c.client.Models.GenerateContent(ctx, modelName,
		[]*googlegenai.Content{{Role: "user", Parts: parts}},
		&googlegenai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: int32(maxTokens(req, c.config)),
		},
	)
	if err != nil {
		return "", &APIError{Provider: ProviderVertex, Model: modelName, Message: "failed to generate content", Cause: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return sb.String(), nil
}

// Provider returns ProviderVertex
func (c *VertexClient) Provider() Provider {
	return ProviderVertex
}

// GetModel returns the model name for a tier
func (c *VertexClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the genai client holds no closable resources
func (c *VertexClient) Close() error {
	return nil
}
