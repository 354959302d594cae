package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"
)

// 答案缓存键前缀
const cacheKeyPrefix = "answer:"

// AnswerSource 标记答案来源
const (
	SourceCache = "cache"
	SourceLive  = "live"
)

// Answer 一次问答的最终结果
type Answer struct {
	Text   string `json:"answer"`
	Source string `json:"source"` // cache | live
}

// AnswerCache 是缓存门控依赖的最小接口。Get 未命中或后端不可达
// 均以 error 表示，服务层将其降级为 miss 而非失败.
type AnswerCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// CacheObserver 缓存命中率指标上报
type CacheObserver interface {
	ObserveCacheLookup(hit bool)
}

// PipelineRunner 管线执行接口
type PipelineRunner interface {
	Run(ctx context.Context, question string) (*State, error)
}

// ServiceConfig 问答服务配置
type ServiceConfig struct {
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// DefaultServiceConfig 返回默认服务配置
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{CacheTTL: 24 * time.Hour}
}

// AnswerService 是同步网关与队列 worker 共用的缓存门控:
// 查缓存 → 未命中执行管线 → 回写缓存。cache 为 nil 时退化为
// 永远未命中、从不回写.
type AnswerService struct {
	config   ServiceConfig
	pipeline PipelineRunner
	cache    AnswerCache
	observer CacheObserver
	logger   *zap.Logger
}

// NewAnswerService 创建问答服务。cache 与 observer 均可为 nil.
func NewAnswerService(config ServiceConfig, pipeline PipelineRunner, cache AnswerCache, observer CacheObserver, logger *zap.Logger) *AnswerService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerService{
		config:   config,
		pipeline: pipeline,
		cache:    cache,
		observer: observer,
		logger:   logger.With(zap.String("component", "answer_service")),
	}
}

// Answer 回答一个问题，优先命中缓存.
func (s *AnswerService) Answer(ctx context.Context, question string) (*Answer, error) {
	key := cacheKeyPrefix + Fingerprint(question)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			s.observeLookup(true)
			s.logger.Debug("cache hit", zap.String("key", key))
			return &Answer{Text: cached, Source: SourceCache}, nil
		}
		// 未命中与后端不可达统一按 miss 处理
		s.observeLookup(false)
	}

	state, err := s.pipeline.Run(ctx, question)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, state.Generation, s.config.CacheTTL); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return &Answer{Text: state.Generation, Source: SourceLive}, nil
}

func (s *AnswerService) observeLookup(hit bool) {
	if s.observer != nil {
		s.observer.ObserveCacheLookup(hit)
	}
}

// NormalizeQuestion 规范化问题文本：去首尾空白、转小写、折叠
// 连续空白。所有缓存调用方必须使用同一规范化，否则命中率会在
// 入口之间悄然分化.
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// Fingerprint 返回规范化问题文本的 SHA-256 十六进制指纹.
func Fingerprint(question string) string {
	sum := sha256.Sum256([]byte(NormalizeQuestion(question)))
	return hex.EncodeToString(sum[:])
}
