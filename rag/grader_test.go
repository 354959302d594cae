package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGrader_OrderPreservingFilter(t *testing.T) {
	provider := &stubLLM{responses: []string{
		`{"score": "yes"}`,
		`{"score": "no"}`,
		`{"score": "yes"}`,
	}}
	g := NewGrader(DefaultGraderConfig(), provider, zap.NewNop())

	in := []Candidate{cand("a", "a"), cand("b", "b"), cand("c", "c")}
	out, err := g.Grade(context.Background(), "q", in)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Document.ID)
	assert.Equal(t, "c", out[1].Document.ID)
}

func TestGrader_FailClosedOnMalformedVerdict(t *testing.T) {
	provider := &stubLLM{responses: []string{
		`definitely relevant!`,
		`{"score": "yes"}`,
	}}
	g := NewGrader(DefaultGraderConfig(), provider, zap.NewNop())

	out, err := g.Grade(context.Background(), "q", []Candidate{cand("a", "a"), cand("b", "b")})
	require.NoError(t, err)

	// 无法解析的裁决按不相关丢弃，其余候选继续评分
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Document.ID)
}

func TestGrader_EmptyInput(t *testing.T) {
	provider := &stubLLM{}
	g := NewGrader(DefaultGraderConfig(), provider, zap.NewNop())

	out, err := g.Grade(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, provider.callCount())
}

func TestGrader_AllDropped(t *testing.T) {
	provider := &stubLLM{responses: []string{`{"score": "no"}`}}
	g := NewGrader(DefaultGraderConfig(), provider, zap.NewNop())

	out, err := g.Grade(context.Background(), "q", []Candidate{cand("a", "a"), cand("b", "b")})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGrader_ProviderErrorAborts(t *testing.T) {
	provider := &stubLLM{err: errors.New("groq unavailable")}
	g := NewGrader(DefaultGraderConfig(), provider, zap.NewNop())

	_, err := g.Grade(context.Background(), "q", []Candidate{cand("a", "a")})
	require.Error(t, err)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		raw          string
		wantRelevant bool
		wantOK       bool
	}{
		{`{"score": "yes"}`, true, true},
		{`{"score": "no"}`, false, true},
		{`{"score": "YES"}`, true, true},
		{"Here is my verdict: {\"score\": \"yes\"} as requested", true, true},
		{`{"score": "maybe"}`, false, false},
		{`yes`, false, false},
		{``, false, false},
		{`{broken`, false, false},
	}
	for _, tt := range tests {
		relevant, ok := parseVerdict(tt.raw)
		assert.Equal(t, tt.wantOK, ok, "raw=%q", tt.raw)
		assert.Equal(t, tt.wantRelevant, relevant, "raw=%q", tt.raw)
	}
}
