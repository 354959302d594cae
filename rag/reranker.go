package rag

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/lexrag/llm/rerank"
)

// RerankerConfig 重排配置
type RerankerConfig struct {
	TopK int `json:"top_k" yaml:"top_k"`
}

// DefaultRerankerConfig 返回默认重排配置
func DefaultRerankerConfig() RerankerConfig {
	return RerankerConfig{TopK: 5}
}

// Reranker 用交叉编码器对融合后的候选集重新打分并截断到 top-k。
// 重排后原检索分数作废，排名完全由重排分数决定.
type Reranker struct {
	config   RerankerConfig
	provider rerank.Provider
	logger   *zap.Logger
}

// NewReranker 创建重排器
func NewReranker(config RerankerConfig, provider rerank.Provider, logger *zap.Logger) *Reranker {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		config:   config,
		provider: provider,
		logger:   logger.With(zap.String("component", "reranker")),
	}
}

// Rerank 重排候选集。空输入直接原样返回，不调用外部模型.
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	docs := make([]rerank.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = rerank.Document{ID: c.Document.ID, Text: c.Document.Content}
	}

	resp, err := r.provider.Rerank(ctx, &rerank.RerankRequest{
		Query:     question,
		Documents: docs,
		TopN:      r.config.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	// 结果通过原始下标映射回候选，保留文档身份与元数据
	out := make([]Candidate, 0, len(resp.Results))
	for _, res := range resp.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			r.logger.Warn("rerank result index out of range",
				zap.Int("index", res.Index),
				zap.Int("candidates", len(candidates)))
			continue
		}
		c := candidates[res.Index]
		c.RerankScore = res.RelevanceScore
		out = append(out, c)
	}

	// 不信任上游返回顺序，按重排分数降序后再截断
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	if len(out) > r.config.TopK {
		out = out[:r.config.TopK]
	}

	r.logger.Debug("rerank complete",
		zap.Int("in", len(candidates)),
		zap.Int("out", len(out)))

	return out, nil
}
