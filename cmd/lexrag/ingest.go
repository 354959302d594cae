package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/BaSui01/lexrag/llm/embedding"
	"github.com/BaSui01/lexrag/rag"

	"go.uber.org/zap"
)

// runIngest 将 JSONL 语料嵌入并写入 Pinecone。内存向量存储
// 在 serve/worker 启动时自动摄取，无需本命令
func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "配置文件路径 (YAML)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Pinecone.Enabled {
		logger.Fatal("ingest requires pinecone.enabled=true, in-memory store ingests at startup")
	}

	ctx, stop := signalContext()
	defer stop()

	docs, err := rag.LoadCorpus(cfg.Corpus.Path)
	if err != nil {
		logger.Fatal("failed to load corpus", zap.String("path", cfg.Corpus.Path), zap.Error(err))
	}
	logger.Info("corpus loaded", zap.String("path", cfg.Corpus.Path), zap.Int("documents", len(docs)))

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Fatal("failed to build embedder", zap.Error(err))
	}

	store := rag.NewPineconeStore(rag.PineconeConfig{
		APIKey:       cfg.Pinecone.APIKey,
		Host:         cfg.Pinecone.Host,
		Namespace:    cfg.Pinecone.Namespace,
		ContentField: cfg.Pinecone.ContentField,
	}, logger)

	if err := ingestDocuments(ctx, docs, embedder, store, logger); err != nil {
		logger.Fatal("ingest failed", zap.Error(err))
	}

	total, err := store.Count(ctx)
	if err != nil {
		logger.Warn("failed to read vector count after ingest", zap.Error(err))
	}
	logger.Info("ingest complete", zap.Int("documents", len(docs)), zap.Int("vectors", total))
}

// ingestDocuments 为缺少向量的文档生成嵌入并批量写入存储。
// 语料里已带 embedding 的文档跳过嵌入调用
func ingestDocuments(ctx context.Context, docs []rag.Document, embedder embedding.Provider, store rag.VectorStore, logger *zap.Logger) error {
	batchSize := embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 32
	}

	// 分离已带向量与待嵌入的文档
	var pending []int
	for i := range docs {
		if len(docs[i].Embedding) == 0 {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = docs[idx].Content
		}

		embeddings, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embed batch at %d: got %d embeddings for %d documents", start, len(embeddings), len(batch))
		}
		for j, idx := range batch {
			docs[idx].Embedding = embeddings[j]
		}
	}

	if len(pending) > 0 {
		logger.Info("embedded documents", zap.Int("count", len(pending)))
	}

	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := store.AddDocuments(ctx, docs[start:end]); err != nil {
			return fmt.Errorf("add documents at %d: %w", start, err)
		}
	}
	return nil
}
