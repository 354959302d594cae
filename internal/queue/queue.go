// Package queue provides the asynchronous job queue backed by Redis Streams.
// Delivery is at-least-once: a received job stays pending until acknowledged,
// and jobs idle past the visibility timeout are reclaimed by other consumers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 📨 作业队列
// =============================================================================

// Config 队列配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr" env:"QUEUE_REDIS_ADDR"`

	// 密码
	Password string `yaml:"password" json:"password" env:"QUEUE_REDIS_PASSWORD"`

	// 数据库编号
	DB int `yaml:"db" json:"db" env:"QUEUE_REDIS_DB"`

	// Stream 键名
	Stream string `yaml:"stream" json:"stream" env:"QUEUE_STREAM"`

	// 消费组名
	Group string `yaml:"group" json:"group" env:"QUEUE_GROUP"`

	// 消费者名，同一组内须唯一
	Consumer string `yaml:"consumer" json:"consumer" env:"QUEUE_CONSUMER"`

	// 可见性超时：未确认的作业空闲超过该时长后可被其他消费者接管
	VisibilityTimeout time.Duration `yaml:"visibility_timeout" json:"visibility_timeout"`
}

// DefaultConfig 返回默认队列配置
func DefaultConfig() Config {
	return Config{
		Addr:              "localhost:6379",
		Stream:            "lexrag:jobs",
		Group:             "lexrag-workers",
		Consumer:          "worker-" + uuid.NewString()[:8],
		VisibilityTimeout: 5 * time.Minute,
	}
}

// jobPayload 作业在队列上的 JSON 线格式
type jobPayload struct {
	Question string `json:"question"`
}

// Message 一次投递的作业描述符。Receipt 仅用于确认删除.
type Message struct {
	ID       string // 入队时分配的作业 ID
	Receipt  string // stream 条目 ID
	Question string
}

// JobQueue Redis Streams 作业队列
type JobQueue struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
}

// New 创建作业队列并确保消费组存在.
func New(config Config, logger *zap.Logger) (*JobQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Stream == "" || config.Group == "" {
		return nil, fmt.Errorf("queue stream and group are required")
	}
	if config.Consumer == "" {
		config.Consumer = "worker-" + uuid.NewString()[:8]
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 幂等创建消费组；组已存在时 Redis 返回 BUSYGROUP
	err := client.XGroupCreateMkStream(ctx, config.Stream, config.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	q := &JobQueue{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "queue")),
	}

	logger.Info("job queue initialized",
		zap.String("addr", config.Addr),
		zap.String("stream", config.Stream),
		zap.String("group", config.Group),
		zap.String("consumer", config.Consumer),
	)

	return q, nil
}

// Enqueue 将问题入队，返回分配的作业 ID.
func (q *JobQueue) Enqueue(ctx context.Context, question string) (string, error) {
	payload, err := json.Marshal(jobPayload{Question: question})
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	jobID := uuid.NewString()
	err = q.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.config.Stream,
		Values: map[string]any{
			"job_id": jobID,
			"body":   string(payload),
		},
	}).Err()
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Debug("job enqueued", zap.String("job_id", jobID))
	return jobID, nil
}

// Receive 长轮询最多一个作业。先尝试接管超过可见性超时的滞留
// 作业，再阻塞等待新作业；等待期满无作业时返回 (nil, nil).
func (q *JobQueue) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	// 接管其他消费者滞留的作业
	claimed, _, err := q.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.config.Stream,
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		MinIdle:  q.config.VisibilityTimeout,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("claim stale jobs: %w", err)
	}
	if len(claimed) > 0 {
		return q.parseMessage(claimed[0])
	}

	// 阻塞等待新作业
	streams, err := q.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		Streams:  []string{q.config.Stream, ">"},
		Count:    1,
		Block:    wait,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.parseMessage(streams[0].Messages[0])
}

// parseMessage 解析 stream 条目为作业描述符.
func (q *JobQueue) parseMessage(entry redis.XMessage) (*Message, error) {
	msg := &Message{Receipt: entry.ID}

	if v, ok := entry.Values["job_id"].(string); ok {
		msg.ID = v
	}
	body, ok := entry.Values["body"].(string)
	if !ok {
		return nil, fmt.Errorf("job %s has no body field", entry.ID)
	}

	var payload jobPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("parse job %s payload: %w", entry.ID, err)
	}
	msg.Question = payload.Question

	return msg, nil
}

// Ack 确认并删除作业。仅在处理成功后调用.
func (q *JobQueue) Ack(ctx context.Context, receipt string) error {
	if err := q.redis.XAck(ctx, q.config.Stream, q.config.Group, receipt).Err(); err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	if err := q.redis.XDel(ctx, q.config.Stream, receipt).Err(); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// Ping 检查 Redis 连接
func (q *JobQueue) Ping(ctx context.Context) error {
	return q.redis.Ping(ctx).Err()
}

// Close 关闭队列连接
func (q *JobQueue) Close() error {
	q.logger.Info("closing job queue")
	return q.redis.Close()
}
