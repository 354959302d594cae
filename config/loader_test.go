package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 🧪 Loader 测试
// =============================================================================

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0.5, cfg.Retrieval.LexicalWeight)
	assert.Equal(t, "huggingface", cfg.Embedding.Provider)
	assert.Equal(t, "cohere", cfg.Rerank.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Grader.Model)
	assert.Equal(t, "mistralai/mixtral-8x7b-instruct", cfg.Generator.Model)
	assert.False(t, cfg.Queue.Enabled)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := `
server:
  http_port: 9000
  rate_limit_rps: 10
redis:
  addr: redis.internal:6379
  cache_ttl: 1h
queue:
  enabled: true
  stream: legal:jobs
retrieval:
  lexical_weight: 0.7
  vector_weight: 0.3
  top_n: 20
corpus:
  path: /data/statutes.jsonl
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 10.0, cfg.Server.RateLimitRPS)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL)
	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, "legal:jobs", cfg.Queue.Stream)
	assert.Equal(t, 0.7, cfg.Retrieval.LexicalWeight)
	assert.Equal(t, 20, cfg.Retrieval.TopN)
	assert.Equal(t, "/data/statutes.jsonl", cfg.Corpus.Path)

	// 未覆盖的字段保留默认值
	assert.Equal(t, "lexrag-workers", cfg.Queue.Group)
	assert.Equal(t, 5, cfg.Rerank.TopK)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/no/such/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEXRAG_SERVER_HTTP_PORT", "7070")
	t.Setenv("LEXRAG_REDIS_ADDR", "envhost:6379")
	t.Setenv("LEXRAG_REDIS_CACHE_TTL", "30m")
	t.Setenv("LEXRAG_QUEUE_ENABLED", "true")
	t.Setenv("LEXRAG_RETRIEVAL_LEXICAL_WEIGHT", "0.8")
	t.Setenv("LEXRAG_GRADER_API_KEY", "gsk-test")
	t.Setenv("LEXRAG_LOG_OUTPUT_PATHS", "stdout, /var/log/lexrag.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "envhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Redis.CacheTTL)
	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, 0.8, cfg.Retrieval.LexicalWeight)
	assert.Equal(t, "gsk-test", cfg.Grader.APIKey)
	assert.Equal(t, []string{"stdout", "/var/log/lexrag.log"}, cfg.Log.OutputPaths)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	content := "server:\n  http_port: 9000\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("LEXRAG_SERVER_HTTP_PORT", "9500")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9500, cfg.Server.HTTPPort)
}

func TestLoad_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("LEXRAG_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoad_ValidatorRejects(t *testing.T) {
	t.Setenv("LEXRAG_EMBEDDING_PROVIDER", "cohere")

	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

// =============================================================================
// 🧪 Validate 测试
// =============================================================================

func TestValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.HTTPPort = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative weight", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Retrieval.LexicalWeight = -0.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("both weights zero", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Retrieval.LexicalWeight = 0
		cfg.Retrieval.VectorWeight = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown rerank provider", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Rerank.Provider = "voyage"
		assert.Error(t, cfg.Validate())
	})

	t.Run("queue enabled without stream", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Queue.Enabled = true
		cfg.Queue.Stream = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("pinecone enabled without host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Pinecone.Enabled = true
		cfg.Pinecone.Host = ""
		assert.Error(t, cfg.Validate())
	})
}
