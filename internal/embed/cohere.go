package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultCohereBaseURL = "https://api.cohere.ai/v1"

// Cohere distinguishes document and query embeddings by input type, which
// matters for its asymmetric models.
const (
	cohereInputDocument = "search_document"
	cohereInputQuery    = "search_query"
)

type cohereProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func newCohere(cfg Config, apiKey string) *cohereProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultCohereModel
	}
	return &cohereProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (p *cohereProvider) Model() string { return p.model }

func (p *cohereProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.embed(ctx, []string{text}, cohereInputQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *cohereProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return p.embed(ctx, texts, cohereInputDocument)
}

type cohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Message    string      `json:"message"`
}

func (p *cohereProvider) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	body, err := json.Marshal(cohereEmbedRequest{
		Texts:     texts,
		Model:     p.model,
		InputType: inputType,
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embeddings: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cohere embeddings: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere embeddings: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cohere embeddings: reading response: %w", err)
	}

	var parsed cohereEmbedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("cohere embeddings: decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Message != "" {
			return nil, fmt.Errorf("cohere embeddings: %s (status %d)", parsed.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("cohere embeddings: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("cohere embeddings: got %d vectors for %d inputs", len(parsed.Embeddings), len(texts))
	}
	return parsed.Embeddings, nil
}
