package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PineconeConfig Pinecone 数据面配置。Host 是索引的数据面地址
// (https://<index>-<project>.svc.<region>.pinecone.io)，在控制台或
// describe_index 中可查.
type PineconeConfig struct {
	APIKey    string        `json:"api_key" yaml:"api_key"`
	Host      string        `json:"host" yaml:"host"`
	Namespace string        `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// 元数据中存放文档正文的字段，默认 "text"
	ContentField string `json:"content_field,omitempty" yaml:"content_field,omitempty"`
}

// PineconeStore 通过 Pinecone REST API 实现 VectorStore。
// 服务路径只用到 upsert、query 与 describe_index_stats 三个端点.
type PineconeStore struct {
	cfg    PineconeConfig
	client *http.Client
	logger *zap.Logger
}

// NewPineconeStore 创建 Pinecone 向量存储
func NewPineconeStore(cfg PineconeConfig, logger *zap.Logger) *PineconeStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ContentField == "" {
		cfg.ContentField = "text"
	}
	cfg.Host = strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if cfg.Host != "" && !strings.HasPrefix(cfg.Host, "http://") && !strings.HasPrefix(cfg.Host, "https://") {
		cfg.Host = "https://" + cfg.Host
	}
	cfg.Namespace = strings.TrimSpace(cfg.Namespace)

	return &PineconeStore{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "pinecone_store")),
	}
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float64      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type pineconeQueryRequest struct {
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata,omitempty"`
	} `json:"matches"`
}

type pineconeStatsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
	Namespaces       map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
}

// AddDocuments 将带向量的文档 upsert 到索引。文档正文写入
// ContentField 元数据字段，查询时从同一字段还原.
func (s *PineconeStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	vectors := make([]pineconeVector, 0, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document[%d] has empty id", i)
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document[%d] has no embedding", i)
		}

		meta := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		if doc.Content != "" {
			meta[s.cfg.ContentField] = doc.Content
		}

		vectors = append(vectors, pineconeVector{
			ID:       doc.ID,
			Values:   doc.Embedding,
			Metadata: meta,
		})
	}

	return s.post(ctx, "/vectors/upsert", pineconeUpsertRequest{
		Vectors:   vectors,
		Namespace: s.cfg.Namespace,
	}, nil)
}

// Search 查询最近邻并从元数据还原文档正文
func (s *PineconeStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]VectorSearchResult, error) {
	if topK <= 0 {
		return []VectorSearchResult{}, nil
	}
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is required")
	}

	var resp pineconeQueryResponse
	err := s.post(ctx, "/query", pineconeQueryRequest{
		Vector:          queryEmbedding,
		TopK:            topK,
		Namespace:       s.cfg.Namespace,
		IncludeMetadata: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]VectorSearchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		doc := Document{
			ID:       m.ID,
			Metadata: m.Metadata,
		}
		if v, ok := m.Metadata[s.cfg.ContentField]; ok {
			if text, ok := v.(string); ok {
				doc.Content = text
			}
		}
		out = append(out, VectorSearchResult{
			Document: doc,
			Score:    m.Score,
			Distance: 1.0 - m.Score,
		})
	}

	return out, nil
}

// Count 返回配置命名空间内的向量数量，命名空间为空时返回索引总量
func (s *PineconeStore) Count(ctx context.Context) (int, error) {
	var resp pineconeStatsResponse
	if err := s.post(ctx, "/describe_index_stats", struct {
		Namespace string `json:"namespace,omitempty"`
	}{Namespace: s.cfg.Namespace}, &resp); err != nil {
		return 0, err
	}

	if s.cfg.Namespace != "" {
		if st, ok := resp.Namespaces[s.cfg.Namespace]; ok {
			return st.VectorCount, nil
		}
		return 0, nil
	}
	return resp.TotalVectorCount, nil
}

// Ping 以一次 stats 调用验证索引可达，供就绪检查使用
func (s *PineconeStore) Ping(ctx context.Context) error {
	_, err := s.Count(ctx)
	return err
}

func (s *PineconeStore) post(ctx context.Context, path string, in any, out any) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("pinecone host is required")
	}
	if s.cfg.APIKey == "" {
		return fmt.Errorf("pinecone api_key is required")
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pinecone error: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
