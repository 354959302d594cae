package rag

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// LexicalConfig BM25 词法索引配置
type LexicalConfig struct {
	K1   float64 `json:"k1" yaml:"k1"`     // BM25 参数 k1 (1.2-2.0)
	B    float64 `json:"b" yaml:"b"`       // BM25 参数 b (0.75)
	TopN int     `json:"top_n" yaml:"top_n"`
}

// DefaultLexicalConfig 返回默认词法索引配置
func DefaultLexicalConfig() LexicalConfig {
	return LexicalConfig{
		K1:   1.5,
		B:    0.75,
		TopN: 10,
	}
}

// LexicalHit 词法检索命中
type LexicalHit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// LexicalIndex 基于 BM25 的内存词法索引。启动时从语料构建，
// 构建后只读，可被并发查询.
type LexicalIndex struct {
	config    LexicalConfig
	documents []Document

	avgDocLen float64
	docLens   []int
	termFreqs []map[string]int
	idf       map[string]float64

	logger *zap.Logger
}

// NewLexicalIndex 从文档构建词法索引
func NewLexicalIndex(config LexicalConfig, docs []Document, logger *zap.Logger) *LexicalIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &LexicalIndex{
		config:    config,
		documents: docs,
		idf:       make(map[string]float64),
		logger:    logger.With(zap.String("component", "lexical_index")),
	}
	idx.computeStats()

	idx.logger.Info("lexical index built",
		zap.Int("documents", len(docs)),
		zap.Int("terms", len(idx.idf)))

	return idx
}

// computeStats 计算 BM25 统计信息
func (idx *LexicalIndex) computeStats() {
	totalLen := 0
	idx.docLens = make([]int, len(idx.documents))
	idx.termFreqs = make([]map[string]int, len(idx.documents))
	termDocCount := make(map[string]int)

	for i, doc := range idx.documents {
		terms := tokenize(doc.Content)
		idx.docLens[i] = len(terms)
		totalLen += len(terms)

		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			freq[term]++
		}
		idx.termFreqs[i] = freq

		for term := range freq {
			termDocCount[term]++
		}
	}

	if len(idx.documents) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(idx.documents))
	}

	N := float64(len(idx.documents))
	for term, df := range termDocCount {
		idx.idf[term] = math.Log((N-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
	}
}

// Search 返回按 BM25 分数降序排列的前 topN 个命中。
// 分数为零的文档不计入结果.
func (idx *LexicalIndex) Search(ctx context.Context, query string, topN int) ([]LexicalHit, error) {
	if topN <= 0 {
		topN = idx.config.TopN
	}
	queryTerms := tokenize(query)

	hits := make([]LexicalHit, 0, len(idx.documents))
	for i, doc := range idx.documents {
		score := 0.0
		docLen := float64(idx.docLens[i])

		for _, qTerm := range queryTerms {
			tf, ok := idx.termFreqs[i][qTerm]
			if !ok {
				continue
			}
			// BM25 公式
			numerator := float64(tf) * (idx.config.K1 + 1.0)
			denominator := float64(tf) + idx.config.K1*(1.0-idx.config.B+idx.config.B*(docLen/idx.avgDocLen))
			score += idx.idf[qTerm] * (numerator / denominator)
		}

		if score > 0 {
			hits = append(hits, LexicalHit{Document: doc, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

// Size 返回索引的文档数量
func (idx *LexicalIndex) Size() int { return len(idx.documents) }

// tokenize 分词：转小写并按空白分割
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
