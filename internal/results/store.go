// Package results persists asynchronous job outcomes in Redis so that
// clients can poll for answers after submitting a question to the queue.
package results

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lexrag/internal/cache"
)

// keyPrefix 作业结果键前缀
const keyPrefix = "job:"

// Status 作业状态
type Status string

const (
	StatusQueued    Status = "queued"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound 作业不存在或结果已过期
var ErrNotFound = fmt.Errorf("job result not found")

// Result 一个异步作业的当前状态与产出.
type Result struct {
	JobID     string    `json:"job_id"`
	Status    Status    `json:"status"`
	Answer    string    `json:"answer,omitempty"`
	Source    string    `json:"source,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store 作业结果存储
type Store struct {
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore 创建结果存储。ttl 为 0 时使用 24 小时.
func NewStore(cacheManager *cache.Manager, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		cache:  cacheManager,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "results")),
	}
}

// MarkQueued 记录作业已入队.
func (s *Store) MarkQueued(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	return s.put(ctx, &Result{
		JobID:     jobID,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// MarkCompleted 记录作业完成及其答案.
func (s *Store) MarkCompleted(ctx context.Context, jobID, answer, source string) error {
	existing, err := s.Get(ctx, jobID)
	if err != nil && err != ErrNotFound {
		return err
	}

	result := &Result{
		JobID:     jobID,
		Status:    StatusCompleted,
		Answer:    answer,
		Source:    source,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if existing != nil {
		result.CreatedAt = existing.CreatedAt
	}
	return s.put(ctx, result)
}

// MarkFailed 记录作业失败原因.
func (s *Store) MarkFailed(ctx context.Context, jobID, reason string) error {
	existing, err := s.Get(ctx, jobID)
	if err != nil && err != ErrNotFound {
		return err
	}

	result := &Result{
		JobID:     jobID,
		Status:    StatusFailed,
		Error:     reason,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if existing != nil {
		result.CreatedAt = existing.CreatedAt
	}
	return s.put(ctx, result)
}

// Get 查询作业结果，不存在时返回 ErrNotFound.
func (s *Store) Get(ctx context.Context, jobID string) (*Result, error) {
	var result Result
	err := s.cache.GetJSON(ctx, keyPrefix+jobID, &result)
	if cache.IsCacheMiss(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job result: %w", err)
	}
	return &result, nil
}

func (s *Store) put(ctx context.Context, result *Result) error {
	if err := s.cache.SetJSON(ctx, keyPrefix+result.JobID, result, s.ttl); err != nil {
		return fmt.Errorf("store job result: %w", err)
	}
	s.logger.Debug("job result stored",
		zap.String("job_id", result.JobID),
		zap.String("status", string(result.Status)),
	)
	return nil
}
