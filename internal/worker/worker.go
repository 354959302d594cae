// Package worker runs the asynchronous job consumer. It long-polls the job
// queue, answers each question through the RAG service, persists the outcome
// and acknowledges the job only after the result has been stored. A job that
// fails stays on the queue and is redelivered after the visibility timeout.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lexrag/internal/queue"
	"github.com/BaSui01/lexrag/rag"
)

// Queue 作业来源
type Queue interface {
	Receive(ctx context.Context, wait time.Duration) (*queue.Message, error)
	Ack(ctx context.Context, receipt string) error
}

// Answerer 问答服务
type Answerer interface {
	Answer(ctx context.Context, question string) (*rag.Answer, error)
}

// ResultStore 作业结果落盘
type ResultStore interface {
	MarkCompleted(ctx context.Context, jobID, answer, source string) error
	MarkFailed(ctx context.Context, jobID, reason string) error
}

// Config 工作进程配置
type Config struct {
	// 单次长轮询等待时长
	PollWait time.Duration `yaml:"poll_wait" json:"poll_wait"`

	// 出错后的暂停时长，避免紧循环打爆队列
	ErrorPause time.Duration `yaml:"error_pause" json:"error_pause"`
}

// DefaultConfig 返回默认工作进程配置
func DefaultConfig() Config {
	return Config{
		PollWait:   20 * time.Second,
		ErrorPause: 5 * time.Second,
	}
}

// Worker 队列消费者
type Worker struct {
	queue   Queue
	service Answerer
	results ResultStore
	config  Config
	logger  *zap.Logger
}

// New 创建工作进程
func New(q Queue, service Answerer, results ResultStore, config Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PollWait <= 0 {
		config.PollWait = 20 * time.Second
	}
	if config.ErrorPause <= 0 {
		config.ErrorPause = 5 * time.Second
	}
	return &Worker{
		queue:   q,
		service: service,
		results: results,
		config:  config,
		logger:  logger.With(zap.String("component", "worker")),
	}
}

// Run 持续消费作业直到 ctx 取消.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", zap.Duration("poll_wait", w.config.PollWait))

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopped")
			return err
		}

		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("poll failed, pausing", zap.Error(err))
			w.pause(ctx)
		}
	}
}

// poll 执行一次长轮询并处理收到的作业.
func (w *Worker) poll(ctx context.Context) error {
	msg, err := w.queue.Receive(ctx, w.config.PollWait)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	w.process(ctx, msg)
	return nil
}

// process 回答单个作业。仅在结果成功落盘后确认删除；
// 失败的作业不确认，留待可见性超时后重投.
func (w *Worker) process(ctx context.Context, msg *queue.Message) {
	logger := w.logger.With(zap.String("job_id", msg.ID))
	logger.Info("processing job")

	answer, err := w.service.Answer(ctx, msg.Question)
	if err != nil {
		logger.Error("job failed", zap.Error(err))
		if markErr := w.results.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
			logger.Error("failed to record job failure", zap.Error(markErr))
		}
		w.pause(ctx)
		return
	}

	if err := w.results.MarkCompleted(ctx, msg.ID, answer.Text, answer.Source); err != nil {
		logger.Error("failed to store job result", zap.Error(err))
		w.pause(ctx)
		return
	}

	if err := w.queue.Ack(ctx, msg.Receipt); err != nil {
		logger.Error("failed to ack job", zap.Error(err))
		w.pause(ctx)
		return
	}

	logger.Info("job completed", zap.String("source", answer.Source))
}

// pause 等待错误冷却期或 ctx 取消.
func (w *Worker) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.config.ErrorPause):
	}
}
