package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/lexrag/llm"
	"github.com/BaSui01/lexrag/llm/rerank"
)

// stubLexical 词法后端桩
type stubLexical struct {
	hits  []LexicalHit
	err   error
	calls int
}

func (s *stubLexical) Search(ctx context.Context, query string, topN int) ([]LexicalHit, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

// stubVector 向量后端桩
type stubVector struct {
	results []VectorSearchResult
	err     error
	calls   int
}

func (s *stubVector) Search(ctx context.Context, query string, topN int) ([]VectorSearchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// stubRerankProvider 重排服务桩，按输入顺序返回预设分数
type stubRerankProvider struct {
	scores   map[string]float64 // doc ID -> relevance score
	unsorted bool               // 模拟不按分数排序返回的上游
	err      error
	calls    int
}

func (s *stubRerankProvider) Rerank(ctx context.Context, req *rerank.RerankRequest) (*rerank.RerankResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	results := make([]rerank.RerankResult, 0, len(req.Documents))
	for i, d := range req.Documents {
		results = append(results, rerank.RerankResult{
			Index:          i,
			RelevanceScore: s.scores[d.ID],
		})
	}
	// 按分数降序，稳定
	if !s.unsorted {
		for i := 1; i < len(results); i++ {
			for j := i; j > 0 && results[j].RelevanceScore > results[j-1].RelevanceScore; j-- {
				results[j], results[j-1] = results[j-1], results[j]
			}
		}
	}
	// 不排序的上游也不截断，把完整结果集交还给调用方
	if !s.unsorted && req.TopN > 0 && len(results) > req.TopN {
		results = results[:req.TopN]
	}
	return &rerank.RerankResponse{Provider: "stub", Results: results}, nil
}

func (s *stubRerankProvider) RerankSimple(ctx context.Context, query string, documents []string, topN int) ([]rerank.RerankResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubRerankProvider) Name() string      { return "stub-rerank" }
func (s *stubRerankProvider) MaxDocuments() int { return 1000 }

// stubLLM 语言模型桩，按调用次序返回预设响应
type stubLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (s *stubLLM) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	s.calls++
	text := ""
	if idx < len(s.responses) {
		text = s.responses[idx]
	} else if len(s.responses) > 0 {
		text = s.responses[len(s.responses)-1]
	}
	return &llm.ChatResponse{
		Model: req.Model,
		Choices: []llm.ChatChoice{{
			Message: llm.Message{Role: llm.RoleAssistant, Content: text},
		}},
	}, nil
}

func (s *stubLLM) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (s *stubLLM) Name() string { return "stub-llm" }

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memCache 内存缓存桩，实现 AnswerCache
type memCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	gets    int
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.entries[key]
	if !ok {
		return "", fmt.Errorf("cache miss")
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
	return nil
}

func doc(id, content string) Document {
	return Document{ID: id, Content: content, Metadata: map[string]any{"source": "test"}}
}

func cand(id, content string) Candidate {
	return Candidate{Document: doc(id, content)}
}
