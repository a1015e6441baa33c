package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// googleProvider embeds through the Gemini API.
type googleProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

func newGoogle(ctx context.Context, cfg Config, apiKey string) (*googleProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google embeddings: creating client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGoogleModel
	}
	return &googleProvider{
		client:     client,
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (p *googleProvider) Model() string { return p.model }

func (p *googleProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *googleProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var config *genai.EmbedContentConfig
	if p.dimensions > 0 {
		dims := int32(p.dimensions)
		config = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google embeddings: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}
