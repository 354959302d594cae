package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReranker_NoopOnEmpty(t *testing.T) {
	provider := &stubRerankProvider{}
	r := NewReranker(DefaultRerankerConfig(), provider, zap.NewNop())

	out, err := r.Rerank(context.Background(), "q", []Candidate{})
	require.NoError(t, err)
	assert.Empty(t, out)
	// 空输入不得触达外部模型
	assert.Equal(t, 0, provider.calls)
}

func TestReranker_OrdersByRerankScore(t *testing.T) {
	provider := &stubRerankProvider{scores: map[string]float64{
		"a": 0.2, "b": 0.9, "c": 0.5,
	}}
	r := NewReranker(DefaultRerankerConfig(), provider, zap.NewNop())

	in := []Candidate{cand("a", "text a"), cand("b", "text b"), cand("c", "text c")}
	out, err := r.Rerank(context.Background(), "q", in)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "b", out[0].Document.ID)
	assert.Equal(t, "c", out[1].Document.ID)
	assert.Equal(t, "a", out[2].Document.ID)
	assert.InDelta(t, 0.9, out[0].RerankScore, 1e-9)

	// 候选的文档身份与元数据保留
	assert.Equal(t, "test", out[0].Document.Metadata["source"])
}

func TestReranker_TruncatesToTopK(t *testing.T) {
	provider := &stubRerankProvider{scores: map[string]float64{
		"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.6, "e": 0.5, "f": 0.4, "g": 0.3,
	}}
	r := NewReranker(RerankerConfig{TopK: 5}, provider, zap.NewNop())

	in := []Candidate{
		cand("a", "a"), cand("b", "b"), cand("c", "c"), cand("d", "d"),
		cand("e", "e"), cand("f", "f"), cand("g", "g"),
	}
	out, err := r.Rerank(context.Background(), "q", in)
	require.NoError(t, err)
	assert.Len(t, out, 5)
}

func TestReranker_SortsUnorderedProviderResults(t *testing.T) {
	// 上游按输入顺序而非分数顺序返回时，截断前必须先按分数排序，
	// 否则 top-k 会丢掉高分候选
	provider := &stubRerankProvider{
		unsorted: true,
		scores:   map[string]float64{"a": 0.2, "b": 0.9, "c": 0.5},
	}
	r := NewReranker(RerankerConfig{TopK: 2}, provider, zap.NewNop())

	in := []Candidate{cand("a", "text a"), cand("b", "text b"), cand("c", "text c")}
	out, err := r.Rerank(context.Background(), "q", in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "b", out[0].Document.ID)
	assert.Equal(t, "c", out[1].Document.ID)
}

func TestReranker_ProviderError(t *testing.T) {
	provider := &stubRerankProvider{err: errors.New("cohere down")}
	r := NewReranker(DefaultRerankerConfig(), provider, zap.NewNop())

	_, err := r.Rerank(context.Background(), "q", []Candidate{cand("a", "a")})
	require.Error(t, err)
}
