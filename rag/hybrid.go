package rag

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/lexrag/llm/embedding"
)

// HybridConfig 混合检索配置
type HybridConfig struct {
	LexicalWeight float64 `json:"lexical_weight" yaml:"lexical_weight"`
	VectorWeight  float64 `json:"vector_weight" yaml:"vector_weight"`
	TopN          int     `json:"top_n" yaml:"top_n"` // 每个后端召回数量
}

// DefaultHybridConfig 返回默认混合检索配置
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		LexicalWeight: 0.5,
		VectorWeight:  0.5,
		TopN:          10,
	}
}

// LexicalBackend 词法检索后端
type LexicalBackend interface {
	Search(ctx context.Context, query string, topN int) ([]LexicalHit, error)
}

// VectorBackend 语义检索后端
type VectorBackend interface {
	Search(ctx context.Context, query string, topN int) ([]VectorSearchResult, error)
}

// VectorRetriever 将问题向量化后查询向量存储，实现 VectorBackend.
type VectorRetriever struct {
	embedder embedding.Provider
	store    VectorStore
}

// NewVectorRetriever 创建语义检索后端
func NewVectorRetriever(embedder embedding.Provider, store VectorStore) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, store: store}
}

// Search 先嵌入查询再执行最近邻搜索
func (r *VectorRetriever) Search(ctx context.Context, query string, topN int) ([]VectorSearchResult, error) {
	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.store.Search(ctx, queryEmbedding, topN)
}

// backendOutcome 单个后端的类型化结果，用于区分"后端降级"与"调用中止".
type backendOutcome struct {
	hits map[string]float64 // doc ID -> 后端原始分数
	docs map[string]Document
	rank []string // 按后端排名排序的 doc ID
	err  error
}

// HybridRetriever 并行查询词法与向量两个后端，并用加权倒数排名
// 融合两个排名列表。两后端均失败才中止本次调用；单个后端失败按
// 空贡献处理并记录告警.
type HybridRetriever struct {
	config  HybridConfig
	lexical LexicalBackend
	vector  VectorBackend
	logger  *zap.Logger
}

// NewHybridRetriever 创建混合检索器
func NewHybridRetriever(config HybridConfig, lexical LexicalBackend, vector VectorBackend, logger *zap.Logger) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridRetriever{
		config:  config,
		lexical: lexical,
		vector:  vector,
		logger:  logger.With(zap.String("component", "hybrid_retriever")),
	}
}

// Retrieve 混合检索。两个后端都返回空时返回空序列，不视为错误.
func (r *HybridRetriever) Retrieve(ctx context.Context, question string) ([]Candidate, error) {
	var lexOut, vecOut backendOutcome

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.lexical.Search(gctx, question, r.config.TopN)
		lexOut = lexicalOutcome(hits, err)
		return nil
	})
	g.Go(func() error {
		results, err := r.vector.Search(gctx, question, r.config.TopN)
		vecOut = vectorOutcome(results, err)
		return nil
	})
	// 后端错误通过 backendOutcome 传递，goroutine 本身不失败
	_ = g.Wait()

	if lexOut.err != nil && vecOut.err != nil {
		return nil, fmt.Errorf("all retrieval backends failed: lexical: %v; vector: %v", lexOut.err, vecOut.err)
	}
	if lexOut.err != nil {
		r.logger.Warn("lexical backend failed, continuing with vector results only", zap.Error(lexOut.err))
	}
	if vecOut.err != nil {
		r.logger.Warn("vector backend failed, continuing with lexical results only", zap.Error(vecOut.err))
	}

	candidates := r.fuse(lexOut, vecOut)

	r.logger.Debug("hybrid retrieval complete",
		zap.Int("lexical_hits", len(lexOut.rank)),
		zap.Int("vector_hits", len(vecOut.rank)),
		zap.Int("fused", len(candidates)))

	return candidates, nil
}

func lexicalOutcome(hits []LexicalHit, err error) backendOutcome {
	if err != nil {
		return backendOutcome{err: err}
	}
	out := backendOutcome{
		hits: make(map[string]float64, len(hits)),
		docs: make(map[string]Document, len(hits)),
		rank: make([]string, 0, len(hits)),
	}
	for _, h := range hits {
		out.hits[h.Document.ID] = h.Score
		out.docs[h.Document.ID] = h.Document
		out.rank = append(out.rank, h.Document.ID)
	}
	return out
}

func vectorOutcome(results []VectorSearchResult, err error) backendOutcome {
	if err != nil {
		return backendOutcome{err: err}
	}
	out := backendOutcome{
		hits: make(map[string]float64, len(results)),
		docs: make(map[string]Document, len(results)),
		rank: make([]string, 0, len(results)),
	}
	for _, res := range results {
		out.hits[res.Document.ID] = res.Score
		out.docs[res.Document.ID] = res.Document
		out.rank = append(out.rank, res.Document.ID)
	}
	return out
}

// rrfK 倒数排名融合的平滑常数
const rrfK = 60

// fuse 对两个排名列表做加权倒数排名融合 (weighted RRF):
//
//	fused(d) = Σ weight_b / (rrfK + rank_b(d))
//
// 排名贡献只取决于名次而非后端原始分数的量纲，因此同时命中两侧的
// 文档的融合分严格高于任何只命中单侧的文档。LexicalScore 与
// VectorScore 保留归一化后的原始分数用于诊断。并列分数按首次出现
// 的后端优先（词法在前）打破.
func (r *HybridRetriever) fuse(lexOut, vecOut backendOutcome) []Candidate {
	lexNorm := normalizeScores(lexOut.hits)
	vecNorm := normalizeScores(vecOut.hits)

	lexRank := rankPositions(lexOut.rank)
	vecRank := rankPositions(vecOut.rank)

	// 按词法排名、再按向量排名的顺序收集去重后的 ID，
	// 稳定排序下这一顺序即为并列时的裁决顺序
	order := make([]string, 0, len(lexOut.rank)+len(vecOut.rank))
	seen := make(map[string]bool)
	for _, id := range lexOut.rank {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, id := range vecOut.rank {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	candidates := make([]Candidate, 0, len(order))
	for _, id := range order {
		doc, ok := lexOut.docs[id]
		if !ok {
			doc = vecOut.docs[id]
		}

		fused := 0.0
		if pos, ok := lexRank[id]; ok {
			fused += r.config.LexicalWeight / float64(rrfK+pos)
		}
		if pos, ok := vecRank[id]; ok {
			fused += r.config.VectorWeight / float64(rrfK+pos)
		}

		candidates = append(candidates, Candidate{
			Document:     doc,
			LexicalScore: lexNorm[id],
			VectorScore:  vecNorm[id],
			FusedScore:   fused,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FusedScore > candidates[j].FusedScore
	})

	return candidates
}

// rankPositions 将有序 ID 列表映射为 1 起始的名次
func rankPositions(ids []string) map[string]int {
	positions := make(map[string]int, len(ids))
	for i, id := range ids {
		positions[id] = i + 1
	}
	return positions
}

// normalizeScores 归一化分数（Min-Max）
func normalizeScores(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}

	minScore := math.MaxFloat64
	maxScore := -math.MaxFloat64
	for _, score := range scores {
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}

	normalized := make(map[string]float64, len(scores))
	scoreRange := maxScore - minScore

	if scoreRange == 0 {
		// 所有分数相同
		for id := range scores {
			normalized[id] = 1.0
		}
	} else {
		for id, score := range scores {
			normalized[id] = (score - minScore) / scoreRange
		}
	}

	return normalized
}
