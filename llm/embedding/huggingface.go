package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// HuggingFaceProvider implements embedding via the Hugging Face inference API.
// The feature-extraction pipeline returns one dense vector per input sentence,
// which is what BGE-family models expose.
type HuggingFaceProvider struct {
	*BaseProvider
	cfg HuggingFaceConfig
}

// NewHuggingFaceProvider creates a new Hugging Face embedding provider.
func NewHuggingFaceProvider(cfg HuggingFaceConfig) *HuggingFaceProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.Model == "" {
		cfg.Model = "BAAI/bge-large-en-v1.5"
	}

	return &HuggingFaceProvider{
		BaseProvider: NewBaseProvider(BaseConfig{
			Name:       "huggingface-embedding",
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: 1024, // bge-large-en-v1.5
			MaxBatch:   64,
			Timeout:    cfg.Timeout,
		}),
		cfg: cfg,
	}
}

type hfEmbedRequest struct {
	Inputs  []string `json:"inputs"`
	Options struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

// Embed generates embeddings for the given inputs.
func (p *HuggingFaceProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	model := ChooseModel(req.Model, p.cfg.Model, "BAAI/bge-large-en-v1.5")

	body := hfEmbedRequest{Inputs: req.Input}
	body.Options.WaitForModel = true

	respBody, err := p.DoRequest(ctx, "POST", "/pipeline/feature-extraction/"+model, body, map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var vectors [][]float64
	if err := json.Unmarshal(respBody, &vectors); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(vectors) != len(req.Input) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(req.Input))
	}

	embeddings := make([]EmbeddingData, len(vectors))
	for i, v := range vectors {
		embeddings[i] = EmbeddingData{Index: i, Embedding: v}
	}

	return &EmbeddingResponse{
		Provider:   p.Name(),
		Model:      model,
		Embeddings: embeddings,
		CreatedAt:  time.Now(),
	}, nil
}

// EmbedQuery embeds a single query.
func (p *HuggingFaceProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return p.BaseProvider.EmbedQuery(ctx, query, p.Embed)
}

// EmbedDocuments embeds multiple documents.
func (p *HuggingFaceProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	return p.BaseProvider.EmbedDocuments(ctx, documents, p.Embed)
}
