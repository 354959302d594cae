package rag

// Document 文档块，离线摄取时创建，服务期间只读.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float64      `json:"embedding,omitempty"`
}

// Candidate 是带有各阶段相关性分数的文档块，仅存在于单次管线调用内.
type Candidate struct {
	Document Document `json:"document"`

	// 各阶段分数。FusedScore 在检索后有效，RerankScore 在重排后有效.
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
	FusedScore   float64 `json:"fused_score"`
	RerankScore  float64 `json:"rerank_score,omitempty"`
}
