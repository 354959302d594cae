package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQueue(t *testing.T, mr *miniredis.Miniredis, consumer string, visibility time.Duration) *JobQueue {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.Consumer = consumer
	cfg.VisibilityTimeout = visibility

	q, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestJobQueue_EnqueueReceiveAck(t *testing.T) {
	mr := miniredis.RunT(t)
	q := newTestQueue(t, mr, "worker-a", time.Minute)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, "What is the notice period for termination?")
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	msg, err := q.Receive(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, jobID, msg.ID)
	assert.NotEmpty(t, msg.Receipt)
	assert.Equal(t, "What is the notice period for termination?", msg.Question)

	require.NoError(t, q.Ack(ctx, msg.Receipt))

	// 确认后作业应从 stream 中删除
	entries, err := mr.Stream(q.config.Stream)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJobQueue_EmptyPollReturnsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	q := newTestQueue(t, mr, "worker-a", time.Minute)

	msg, err := q.Receive(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestJobQueue_UnackedJobRemainsOnStream(t *testing.T) {
	mr := miniredis.RunT(t)
	q := newTestQueue(t, mr, "worker-a", time.Minute)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "Is a verbal contract binding?")
	require.NoError(t, err)

	msg, err := q.Receive(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg)

	// 未确认的作业保留在 stream 上
	entries, err := mr.Stream(q.config.Stream)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJobQueue_StaleJobReclaimedByOtherConsumer(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	qa := newTestQueue(t, mr, "worker-a", time.Millisecond)
	jobID, err := qa.Enqueue(ctx, "Can a landlord raise rent mid-lease?")
	require.NoError(t, err)

	// worker-a 收到但不确认
	msg, err := qa.Receive(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg)

	time.Sleep(10 * time.Millisecond)

	// 超过可见性超时后 worker-b 接管同一作业
	qb := newTestQueue(t, mr, "worker-b", time.Millisecond)
	claimed, err := qb.Receive(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, jobID, claimed.ID)
	assert.Equal(t, msg.Receipt, claimed.Receipt)

	require.NoError(t, qb.Ack(ctx, claimed.Receipt))
}

func TestJobQueue_MultipleJobsInOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	q := newTestQueue(t, mr, "worker-a", time.Minute)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "first question")
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "second question")
	require.NoError(t, err)

	m1, err := q.Receive(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, m1)
	assert.Equal(t, first, m1.ID)
	require.NoError(t, q.Ack(ctx, m1.Receipt))

	m2, err := q.Receive(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, m2)
	assert.Equal(t, second, m2.ID)
	require.NoError(t, q.Ack(ctx, m2.Receipt))
}

func TestJobQueue_ConnectFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"

	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)
}
