package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func newHybrid(lex *stubLexical, vec *stubVector) *HybridRetriever {
	return NewHybridRetriever(DefaultHybridConfig(), lex, vec, zap.NewNop())
}

func TestHybridRetriever_FusesBothBackends(t *testing.T) {
	lex := &stubLexical{hits: []LexicalHit{
		{Document: doc("x", "clause x"), Score: 3.0},
		{Document: doc("y", "clause y"), Score: 1.0},
	}}
	vec := &stubVector{results: []VectorSearchResult{
		{Document: doc("y", "clause y"), Score: 0.9},
		{Document: doc("z", "clause z"), Score: 0.5},
	}}

	out, err := newHybrid(lex, vec).Retrieve(context.Background(), "what is clause 4.2")
	require.NoError(t, err)
	require.Len(t, out, 3)

	byID := make(map[string]Candidate)
	rank := make(map[string]int)
	for i, c := range out {
		byID[c.Document.ID] = c
		rank[c.Document.ID] = i
	}

	// 出现在两个后端的 y 排名不低于只出现在单侧的 x 与 z
	assert.LessOrEqual(t, rank["y"], rank["x"])
	assert.LessOrEqual(t, rank["y"], rank["z"])

	// 融合分数是两侧名次的加权倒数和: y 词法第 2、向量第 1
	assert.InDelta(t, 0.5/float64(rrfK+2)+0.5/float64(rrfK+1), byID["y"].FusedScore, 1e-9)
	assert.Greater(t, byID["y"].FusedScore, byID["x"].FusedScore)
	assert.Greater(t, byID["y"].FusedScore, byID["z"].FusedScore)
}

func TestHybridRetriever_DualBackendMembershipDominates(t *testing.T) {
	// 词法侧以极大分差领先的 x 仍然排在同时命中两侧、
	// 但每侧都只排第 2 的 y 之后
	lex := &stubLexical{hits: []LexicalHit{
		{Document: doc("x", "clause x"), Score: 100.0},
		{Document: doc("y", "clause y"), Score: 0.01},
	}}
	vec := &stubVector{results: []VectorSearchResult{
		{Document: doc("z", "clause z"), Score: 0.99},
		{Document: doc("y", "clause y"), Score: 0.01},
	}}

	out, err := newHybrid(lex, vec).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "y", out[0].Document.ID)
}

func TestHybridRetriever_BothEmpty(t *testing.T) {
	out, err := newHybrid(&stubLexical{}, &stubVector{}).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHybridRetriever_VectorBackendDegraded(t *testing.T) {
	lex := &stubLexical{hits: []LexicalHit{{Document: doc("a", "clause a"), Score: 2.0}}}
	vec := &stubVector{err: errors.New("pinecone unreachable")}

	out, err := newHybrid(lex, vec).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Document.ID)
	assert.Equal(t, 0.0, out[0].VectorScore)
}

func TestHybridRetriever_AllBackendsFailed(t *testing.T) {
	lex := &stubLexical{err: errors.New("index not built")}
	vec := &stubVector{err: errors.New("pinecone unreachable")}

	_, err := newHybrid(lex, vec).Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retrieval backends failed")
}

func TestHybridRetriever_TieBreakLexicalFirst(t *testing.T) {
	// 单命中时两侧都归一化为 1.0，融合分数相同；词法命中应排在前
	lex := &stubLexical{hits: []LexicalHit{{Document: doc("lex-doc", "l"), Score: 5.0}}}
	vec := &stubVector{results: []VectorSearchResult{{Document: doc("vec-doc", "v"), Score: 0.4}}}

	out, err := newHybrid(lex, vec).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "lex-doc", out[0].Document.ID)
	assert.Equal(t, "vec-doc", out[1].Document.ID)
}

func TestHybridRetriever_FusionDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "lexN")
		m := rapid.IntRange(0, 8).Draw(t, "vecN")

		lexHits := make([]LexicalHit, n)
		for i := range lexHits {
			lexHits[i] = LexicalHit{
				Document: doc(fmt.Sprintf("l%d", i), "text"),
				Score:    rapid.Float64Range(0, 10).Draw(t, fmt.Sprintf("ls%d", i)),
			}
		}
		vecResults := make([]VectorSearchResult, m)
		for i := range vecResults {
			vecResults[i] = VectorSearchResult{
				Document: doc(fmt.Sprintf("v%d", i%5), "text"),
				Score:    rapid.Float64Range(0, 1).Draw(t, fmt.Sprintf("vs%d", i)),
			}
		}

		r := newHybrid(&stubLexical{hits: lexHits}, &stubVector{results: vecResults})

		first, err := r.Retrieve(context.Background(), "q")
		require.NoError(t, err)
		second, err := r.Retrieve(context.Background(), "q")
		require.NoError(t, err)

		// 相同输入下两次调用产生逐字节一致的有序输出
		require.Equal(t, first, second)

		// 融合分数单调不增
		for i := 1; i < len(first); i++ {
			assert.GreaterOrEqual(t, first[i-1].FusedScore, first[i].FusedScore)
		}
	})
}

func TestNormalizeScores(t *testing.T) {
	norm := normalizeScores(map[string]float64{"a": 2, "b": 6, "c": 4})
	assert.InDelta(t, 0.0, norm["a"], 1e-9)
	assert.InDelta(t, 1.0, norm["b"], 1e-9)
	assert.InDelta(t, 0.5, norm["c"], 1e-9)

	// 所有分数相同时全部归一化为 1.0
	same := normalizeScores(map[string]float64{"a": 3, "b": 3})
	assert.Equal(t, 1.0, same["a"])
	assert.Equal(t, 1.0, same["b"])

	assert.Empty(t, normalizeScores(map[string]float64{}))
}
