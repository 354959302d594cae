package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/lexrag/internal/cache"
	"github.com/BaSui01/lexrag/internal/queue"
	"github.com/BaSui01/lexrag/internal/results"
	"github.com/BaSui01/lexrag/rag"
	"github.com/BaSui01/lexrag/types"
)

// stubAnswerer 按问题返回固定答案或错误
type stubAnswerer struct {
	mu      sync.Mutex
	answers map[string]*rag.Answer
	errs    map[string]error
	calls   int
}

func (s *stubAnswerer) Answer(_ context.Context, question string) (*rag.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err, ok := s.errs[question]; ok {
		return nil, err
	}
	if a, ok := s.answers[question]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("unexpected question %q", question)
}

type harness struct {
	mr      *miniredis.Miniredis
	queue   *queue.JobQueue
	results *results.Store
	worker  *Worker
	service *stubAnswerer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)

	qcfg := queue.DefaultConfig()
	qcfg.Addr = mr.Addr()
	qcfg.VisibilityTimeout = time.Millisecond
	q, err := queue.New(qcfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	ccfg := cache.DefaultConfig()
	ccfg.Addr = mr.Addr()
	manager, err := cache.NewManager(ccfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	store := results.NewStore(manager, time.Hour, zap.NewNop())
	service := &stubAnswerer{
		answers: map[string]*rag.Answer{},
		errs:    map[string]error{},
	}

	cfg := DefaultConfig()
	cfg.PollWait = 20 * time.Millisecond
	cfg.ErrorPause = time.Millisecond

	return &harness{
		mr:      mr,
		queue:   q,
		results: store,
		worker:  New(q, service, store, cfg, zap.NewNop()),
		service: service,
	}
}

// streamLen 返回作业 stream 上的条目数
func streamLen(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	entries, err := mr.Stream("lexrag:jobs")
	require.NoError(t, err)
	return len(entries)
}

func TestWorker_SuccessfulJobIsAckedAndStored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.service.answers["What is adverse possession?"] = &rag.Answer{
		Text:   "Adverse possession transfers title after continuous occupation.",
		Source: rag.SourceLive,
	}

	jobID, err := h.queue.Enqueue(ctx, "What is adverse possession?")
	require.NoError(t, err)
	require.NoError(t, h.results.MarkQueued(ctx, jobID))

	require.NoError(t, h.worker.poll(ctx))

	result, err := h.results.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, results.StatusCompleted, result.Status)
	assert.Equal(t, "Adverse possession transfers title after continuous occupation.", result.Answer)
	assert.Equal(t, rag.SourceLive, result.Source)

	// 成功的作业从 stream 删除
	assert.Equal(t, 0, streamLen(t, h.mr))
	assert.Equal(t, 1, h.service.calls)
}

func TestWorker_FailedJobStaysOnQueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gradeErr := types.NewError(types.ErrGradingFailed, "grading provider unavailable")
	h.service.errs["Is this clause enforceable?"] = gradeErr

	jobID, err := h.queue.Enqueue(ctx, "Is this clause enforceable?")
	require.NoError(t, err)
	require.NoError(t, h.results.MarkQueued(ctx, jobID))

	require.NoError(t, h.worker.poll(ctx))

	result, err := h.results.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, results.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "grading provider unavailable")

	// 未确认的作业保留在 stream 上，超时后可重投
	assert.Equal(t, 1, streamLen(t, h.mr))
}

func TestWorker_FailedJobRedeliveredAndRecovers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.service.errs["flaky question"] = fmt.Errorf("transient upstream error")

	jobID, err := h.queue.Enqueue(ctx, "flaky question")
	require.NoError(t, err)
	require.NoError(t, h.results.MarkQueued(ctx, jobID))

	require.NoError(t, h.worker.poll(ctx))

	// 上游恢复后重投成功
	delete(h.service.errs, "flaky question")
	h.service.answers["flaky question"] = &rag.Answer{Text: "recovered", Source: rag.SourceLive}

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, h.worker.poll(ctx))

	result, err := h.results.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, results.StatusCompleted, result.Status)
	assert.Equal(t, "recovered", result.Answer)
	assert.Equal(t, 0, streamLen(t, h.mr))
	assert.Equal(t, 2, h.service.calls)
}

func TestWorker_EmptyPollIsNotAnError(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.worker.poll(context.Background()))
	assert.Equal(t, 0, h.service.calls)
}

func TestWorker_RunStopsOnContextCancel(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
