package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/lexrag/api/handlers"
	"github.com/BaSui01/lexrag/config"
	"github.com/BaSui01/lexrag/internal/cache"
	"github.com/BaSui01/lexrag/internal/metrics"
	"github.com/BaSui01/lexrag/internal/queue"
	"github.com/BaSui01/lexrag/internal/results"
	"github.com/BaSui01/lexrag/internal/server"
	"github.com/BaSui01/lexrag/llm"
	"github.com/BaSui01/lexrag/llm/embedding"
	"github.com/BaSui01/lexrag/llm/openaicompat"
	"github.com/BaSui01/lexrag/llm/rerank"
	"github.com/BaSui01/lexrag/rag"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server 聚合网关进程的全部组件
type Server struct {
	config *config.Config
	logger *zap.Logger

	metricsCollector *metrics.Collector
	cacheManager     *cache.Manager
	jobQueue         *queue.JobQueue
	resultStore      *results.Store
	answerService    *rag.AnswerService

	httpManager    *server.Manager
	metricsManager *server.Manager

	cancel context.CancelFunc
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		config: cfg,
		logger: logger,
	}
}

// Start 构建全部组件并启动 HTTP 与 metrics 服务器
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.metricsCollector = metrics.NewCollector("lexrag", nil, s.logger)

	// 答案缓存。连接失败时降级为无缓存运行而不是拒绝启动
	cacheManager, err := cache.NewManager(cacheConfig(s.config), s.logger)
	if err != nil {
		s.logger.Warn("redis unavailable, answer cache disabled", zap.Error(err))
	} else {
		s.cacheManager = cacheManager
	}

	// 管线构建失败时仍然启动，/ask 返回 PIPELINE_NOT_READY
	service, err := buildAnswerService(ctx, s.config, s.cacheManager, s.metricsCollector, s.logger)
	if err != nil {
		s.logger.Error("pipeline not ready, ask endpoint will return 503", zap.Error(err))
	} else {
		s.answerService = service
	}

	// 异步作业接口，按配置启用
	if s.config.Queue.Enabled {
		jobQueue, err := queue.New(queueConfig(s.config), s.logger)
		if err != nil {
			s.logger.Warn("job queue unavailable, async endpoints disabled", zap.Error(err))
		} else {
			s.jobQueue = jobQueue
			if s.cacheManager != nil {
				s.resultStore = results.NewStore(s.cacheManager, s.config.Redis.ResultTTL, s.logger)
			} else {
				s.logger.Warn("job results need redis, async endpoints disabled")
				s.jobQueue = nil
			}
		}
	}

	handler := s.buildHandler(ctx)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.config.Server.HTTPPort),
		ReadTimeout:     s.config.Server.ReadTimeout,
		WriteTimeout:    s.config.Server.WriteTimeout,
		IdleTimeout:     2 * s.config.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.config.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		cancel()
		return fmt.Errorf("start http server: %w", err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	s.metricsManager = server.NewManager(metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.config.Server.MetricsPort),
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 5 * time.Second,
	}, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		s.logger.Warn("failed to start metrics server", zap.Error(err))
		s.metricsManager = nil
	}

	s.logger.Info("lexrag gateway started",
		zap.String("addr", s.httpManager.Addr()),
		zap.Int("metrics_port", s.config.Server.MetricsPort),
		zap.Bool("queue_enabled", s.jobQueue != nil),
		zap.Bool("cache_enabled", s.cacheManager != nil),
	)
	return nil
}

// buildHandler 组装路由与中间件链
func (s *Server) buildHandler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(s.logger)
	if s.cacheManager != nil {
		healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.cacheManager.Ping))
	}
	if s.jobQueue != nil {
		healthHandler.RegisterCheck(handlers.NewPingCheck("queue", s.jobQueue.Ping))
	}

	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", healthHandler.HandleReady)
	mux.HandleFunc("GET /version", healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	var answerer handlers.AskAnswerer
	if s.answerService != nil {
		answerer = s.answerService
	}
	askHandler := handlers.NewAskHandler(answerer, s.logger)
	mux.HandleFunc("POST /api/v1/ask", askHandler.HandleAsk)

	var (
		enqueuer handlers.JobEnqueuer
		res      handlers.JobResults
	)
	if s.jobQueue != nil && s.resultStore != nil {
		enqueuer = s.jobQueue
		res = s.resultStore
	}
	jobsHandler := handlers.NewJobsHandler(enqueuer, res, s.metricsCollector, s.logger)
	mux.HandleFunc("POST /api/v1/jobs", jobsHandler.HandleSubmit)
	mux.HandleFunc("GET /api/v1/jobs/{id}", jobsHandler.HandleStatus)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
		RateLimiter(ctx, s.config.Server.RateLimitRPS, s.config.Server.RateLimitBurst, s.logger),
	)
}

// WaitForShutdown 阻塞直到收到退出信号，随后优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown 依次关闭全部组件
func (s *Server) Shutdown() {
	s.logger.Info("shutting down lexrag gateway")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown failed", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
	if s.jobQueue != nil {
		if err := s.jobQueue.Close(); err != nil {
			s.logger.Error("job queue close failed", zap.Error(err))
		}
	}
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("cache close failed", zap.Error(err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info("lexrag gateway stopped")
}

// =============================================================================
// 🔧 组件构建
// =============================================================================

// buildAnswerService 组装完整管线: 语料 → 检索 → 重排 → 评分 → 生成 → 缓存门控。
// 网关与 worker 共用
func buildAnswerService(ctx context.Context, cfg *config.Config, cacheManager *cache.Manager, collector *metrics.Collector, logger *zap.Logger) (*rag.AnswerService, error) {
	docs, err := rag.LoadCorpus(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", cfg.Corpus.Path, err)
	}
	logger.Info("corpus loaded", zap.String("path", cfg.Corpus.Path), zap.Int("documents", len(docs)))

	lexical := rag.NewLexicalIndex(rag.LexicalConfig{
		K1:   cfg.Retrieval.BM25K1,
		B:    cfg.Retrieval.BM25B,
		TopN: cfg.Retrieval.TopN,
	}, docs, logger)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildVectorStore(ctx, cfg, docs, embedder, logger)
	if err != nil {
		return nil, err
	}

	retriever := rag.NewHybridRetriever(rag.HybridConfig{
		LexicalWeight: cfg.Retrieval.LexicalWeight,
		VectorWeight:  cfg.Retrieval.VectorWeight,
		TopN:          cfg.Retrieval.TopN,
	}, lexical, rag.NewVectorRetriever(embedder, store), logger)

	rerankProvider, err := buildRerankProvider(cfg)
	if err != nil {
		return nil, err
	}
	reranker := rag.NewReranker(rag.RerankerConfig{TopK: cfg.Rerank.TopK}, rerankProvider, logger)

	grader := rag.NewGrader(rag.GraderConfig{
		Model:       cfg.Grader.Model,
		Temperature: float32(cfg.Grader.Temperature),
	}, buildGraderProvider(cfg, logger), logger)

	generator := rag.NewGenerator(rag.GeneratorConfig{
		Model:            cfg.Generator.Model,
		MaxTokens:        cfg.Generator.MaxTokens,
		MaxContextTokens: cfg.Generator.MaxContextTokens,
	}, buildGeneratorProvider(cfg, logger), logger)

	pipeline, err := rag.NewPipeline(retriever, reranker, grader, generator, collector, logger)
	if err != nil {
		return nil, err
	}

	var answerCache rag.AnswerCache
	if cacheManager != nil {
		answerCache = cacheManager
	}
	var observer rag.CacheObserver
	if collector != nil {
		observer = collector
	}

	return rag.NewAnswerService(rag.ServiceConfig{CacheTTL: cfg.Redis.CacheTTL}, pipeline, answerCache, observer, logger), nil
}

// buildEmbedder 按配置选择向量化后端
func buildEmbedder(cfg *config.Config) (embedding.Provider, error) {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "huggingface":
		hf := embedding.DefaultHuggingFaceConfig()
		hf.APIKey = cfg.Embedding.APIKey
		if cfg.Embedding.Model != "" {
			hf.Model = cfg.Embedding.Model
		}
		if cfg.Embedding.BaseURL != "" {
			hf.BaseURL = cfg.Embedding.BaseURL
		}
		return embedding.NewHuggingFaceProvider(hf), nil
	case "openai":
		oa := embedding.DefaultOpenAIConfig()
		oa.APIKey = cfg.Embedding.APIKey
		if cfg.Embedding.Model != "" {
			oa.Model = cfg.Embedding.Model
		}
		if cfg.Embedding.BaseURL != "" {
			oa.BaseURL = cfg.Embedding.BaseURL
		}
		return embedding.NewOpenAIProvider(oa), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

// buildVectorStore 按配置选择向量存储。Pinecone 关闭时回退到内存存储
// 并在启动时完成语料摄取
func buildVectorStore(ctx context.Context, cfg *config.Config, docs []rag.Document, embedder embedding.Provider, logger *zap.Logger) (rag.VectorStore, error) {
	if cfg.Pinecone.Enabled {
		pc := rag.NewPineconeStore(rag.PineconeConfig{
			APIKey:       cfg.Pinecone.APIKey,
			Host:         cfg.Pinecone.Host,
			Namespace:    cfg.Pinecone.Namespace,
			ContentField: cfg.Pinecone.ContentField,
		}, logger)
		if err := pc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("pinecone index not reachable: %w", err)
		}
		return pc, nil
	}

	store := rag.NewInMemoryVectorStore(logger)
	if err := ingestDocuments(ctx, docs, embedder, store, logger); err != nil {
		return nil, fmt.Errorf("ingest corpus into memory store: %w", err)
	}
	return store, nil
}

// buildRerankProvider 按配置选择重排后端
func buildRerankProvider(cfg *config.Config) (rerank.Provider, error) {
	switch strings.ToLower(cfg.Rerank.Provider) {
	case "cohere":
		c := rerank.DefaultCohereConfig()
		c.APIKey = cfg.Rerank.APIKey
		if cfg.Rerank.Model != "" {
			c.Model = cfg.Rerank.Model
		}
		return rerank.NewCohereProvider(c), nil
	case "jina":
		j := rerank.DefaultJinaConfig()
		j.APIKey = cfg.Rerank.APIKey
		if cfg.Rerank.Model != "" {
			j.Model = cfg.Rerank.Model
		}
		return rerank.NewJinaProvider(j), nil
	default:
		return nil, fmt.Errorf("unknown rerank provider: %s", cfg.Rerank.Provider)
	}
}

// buildGraderProvider 评分模型走 Groq 的 OpenAI 兼容接口
func buildGraderProvider(cfg *config.Config, logger *zap.Logger) llm.Provider {
	return openaicompat.New(openaicompat.Config{
		ProviderName: "groq",
		APIKey:       cfg.Grader.APIKey,
		BaseURL:      cfg.Grader.BaseURL,
		DefaultModel: cfg.Grader.Model,
	}, logger)
}

// buildGeneratorProvider 生成模型走 OpenRouter 的 OpenAI 兼容接口。
// OpenRouter 要求额外的 Referer 与 X-Title 头
func buildGeneratorProvider(cfg *config.Config, logger *zap.Logger) llm.Provider {
	return openaicompat.New(openaicompat.Config{
		ProviderName: "openrouter",
		APIKey:       cfg.Generator.APIKey,
		BaseURL:      cfg.Generator.BaseURL,
		DefaultModel: cfg.Generator.Model,
		Timeout:      90 * time.Second,
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
			req.Header.Set("HTTP-Referer", "https://github.com/BaSui01/lexrag")
			req.Header.Set("X-Title", "LexRAG")
		},
	}, logger)
}

// cacheConfig 从总配置导出缓存配置
func cacheConfig(cfg *config.Config) cache.Config {
	c := cache.DefaultConfig()
	c.Addr = cfg.Redis.Addr
	c.Password = cfg.Redis.Password
	c.DB = cfg.Redis.DB
	c.PoolSize = cfg.Redis.PoolSize
	c.DefaultTTL = cfg.Redis.CacheTTL
	return c
}

// queueConfig 从总配置导出队列配置
func queueConfig(cfg *config.Config) queue.Config {
	q := queue.DefaultConfig()
	q.Addr = cfg.Redis.Addr
	q.Password = cfg.Redis.Password
	q.DB = cfg.Redis.DB
	if cfg.Queue.Stream != "" {
		q.Stream = cfg.Queue.Stream
	}
	if cfg.Queue.Group != "" {
		q.Group = cfg.Queue.Group
	}
	if cfg.Queue.Consumer != "" {
		q.Consumer = cfg.Queue.Consumer
	}
	if cfg.Queue.VisibilityTimeout > 0 {
		q.VisibilityTimeout = cfg.Queue.VisibilityTimeout
	}
	return q
}
