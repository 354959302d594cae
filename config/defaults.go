// =============================================================================
// 📦 LexRAG 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Redis:     DefaultRedisConfig(),
		Queue:     DefaultQueueConfig(),
		Worker:    DefaultWorkerConfig(),
		Pinecone:  DefaultPineconeConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Rerank:    DefaultRerankConfig(),
		Grader:    DefaultGraderConfig(),
		Generator: DefaultGeneratorConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Corpus:    DefaultCorpusConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		RateLimitRPS:    50,
		RateLimitBurst:  100,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		DB:        0,
		PoolSize:  10,
		CacheTTL:  24 * time.Hour,
		ResultTTL: 24 * time.Hour,
	}
}

// DefaultQueueConfig 返回默认队列配置
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Enabled:           false,
		Stream:            "lexrag:jobs",
		Group:             "lexrag-workers",
		VisibilityTimeout: 5 * time.Minute,
	}
}

// DefaultWorkerConfig 返回默认消费者配置
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollWait:   20 * time.Second,
		ErrorPause: 5 * time.Second,
	}
}

// DefaultPineconeConfig 返回默认 Pinecone 配置
func DefaultPineconeConfig() PineconeConfig {
	return PineconeConfig{
		Enabled:      false,
		ContentField: "text",
	}
}

// DefaultEmbeddingConfig 返回默认向量化配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider: "huggingface",
		Model:    "BAAI/bge-large-en-v1.5",
	}
}

// DefaultRerankConfig 返回默认重排配置
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		Provider: "cohere",
		Model:    "rerank-v3.5",
		TopK:     5,
	}
}

// DefaultGraderConfig 返回默认判断模型配置
func DefaultGraderConfig() GraderConfig {
	return GraderConfig{
		BaseURL:     "https://api.groq.com/openai",
		Model:       "llama-3.1-8b-instant",
		Temperature: 0,
	}
}

// DefaultGeneratorConfig 返回默认生成模型配置
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BaseURL:          "https://openrouter.ai/api",
		Model:            "mistralai/mixtral-8x7b-instruct",
		MaxTokens:        1024,
		MaxContextTokens: 3000,
	}
}

// DefaultRetrievalConfig 返回默认混合检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		LexicalWeight: 0.5,
		VectorWeight:  0.5,
		TopN:          10,
		BM25K1:        1.5,
		BM25B:         0.75,
	}
}

// DefaultCorpusConfig 返回默认语料配置
func DefaultCorpusConfig() CorpusConfig {
	return CorpusConfig{
		Path: "corpus.jsonl",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "lexrag",
		SampleRate:   1.0,
	}
}
