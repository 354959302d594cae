package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/lexrag/llm"
)

func TestHuggingFaceProvider_Embed(t *testing.T) {
	var gotPath string
	var gotReq hfEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode([][]float64{
			{0.1, 0.2, 0.3},
			{0.4, 0.5, 0.6},
		})
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider(HuggingFaceConfig{
		APIKey:  "hf-key",
		BaseURL: srv.URL,
	})

	resp, err := p.Embed(context.Background(), &EmbeddingRequest{
		Input: []string{"first chunk", "second chunk"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/pipeline/feature-extraction/BAAI/bge-large-en-v1.5", gotPath)
	assert.True(t, gotReq.Options.WaitForModel)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float64{0.4, 0.5, 0.6}, resp.Embeddings[1].Embedding)
	assert.Equal(t, "huggingface-embedding", resp.Provider)
}

func TestHuggingFaceProvider_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float64{{0.1}})
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider(HuggingFaceConfig{BaseURL: srv.URL})
	_, err := p.Embed(context.Background(), &EmbeddingRequest{Input: []string{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestHuggingFaceProvider_EmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float64{{1, 2, 3}})
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider(HuggingFaceConfig{BaseURL: srv.URL})
	vec, err := p.EmbedQuery(context.Background(), "what is GDPR")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, vec)
}

func TestOpenAIProvider_EmbedDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 0, "embedding": [0.5, 0.5]},
				{"object": "embedding", "index": 1, "embedding": [0.7, 0.1]}
			],
			"model": "text-embedding-3-large",
			"usage": {"prompt_tokens": 10, "total_tokens": 10}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	vecs, err := p.EmbedDocuments(context.Background(), []string{"doc one", "doc two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{0.7, 0.1}, vecs[1])
}

func TestProvider_ErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limit exceeded"))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider(HuggingFaceConfig{BaseURL: srv.URL})
	_, err := p.Embed(context.Background(), &EmbeddingRequest{Input: []string{"x"}})
	require.Error(t, err)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrRateLimited, llmErr.Code)
	assert.True(t, llmErr.Retryable)
}

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "req-model", ChooseModel("req-model", "default", "fallback"))
	assert.Equal(t, "default", ChooseModel("", "default", "fallback"))
	assert.Equal(t, "fallback", ChooseModel("", "", "fallback"))
}
