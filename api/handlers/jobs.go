package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaSui01/lexrag/api"
	"github.com/BaSui01/lexrag/internal/results"
	"github.com/BaSui01/lexrag/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📨 异步作业 Handler
// =============================================================================

// JobEnqueuer 作业入队接口
type JobEnqueuer interface {
	Enqueue(ctx context.Context, question string) (string, error)
}

// JobResults 作业结果查询接口
type JobResults interface {
	MarkQueued(ctx context.Context, jobID string) error
	Get(ctx context.Context, jobID string) (*results.Result, error)
}

// JobObserver 作业入队指标观察
type JobObserver interface {
	RecordJobEnqueued()
}

// JobsHandler 异步作业处理器
type JobsHandler struct {
	queue    JobEnqueuer
	results  JobResults
	observer JobObserver
	logger   *zap.Logger
}

// NewJobsHandler 创建异步作业处理器。queue 为 nil 表示队列未配置，
// 提交与查询一律返回 503.
func NewJobsHandler(queue JobEnqueuer, res JobResults, observer JobObserver, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{
		queue:    queue,
		results:  res,
		observer: observer,
		logger:   logger,
	}
}

// HandleSubmit 处理作业提交请求
// @Summary 提交异步问答作业
// @Description 将问题入队，返回可轮询的作业 ID
// @Tags 作业
// @Accept json
// @Produce json
// @Param request body api.SubmitJobRequest true "作业请求"
// @Success 202 {object} api.SubmitJobResponse "已入队"
// @Failure 400 {object} Response "无效请求"
// @Failure 503 {object} Response "队列未配置"
// @Router /api/v1/jobs [post]
func (h *JobsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil || h.results == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrQueueNotConfigured,
			"job queue is not configured", h.logger)
		return
	}

	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.SubmitJobRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "question is required"), h.logger)
		return
	}

	jobID, err := h.queue.Enqueue(r.Context(), req.Question)
	if err != nil {
		WriteError(w, types.NewError(types.ErrEnqueueFailed, "failed to enqueue job").WithCause(err), h.logger)
		return
	}

	if err := h.results.MarkQueued(r.Context(), jobID); err != nil {
		// 作业已入队，状态记录失败只记日志
		h.logger.Warn("failed to record queued status", zap.String("job_id", jobID), zap.Error(err))
	}

	if h.observer != nil {
		h.observer.RecordJobEnqueued()
	}

	h.logger.Info("job submitted", zap.String("job_id", jobID))

	WriteJSON(w, http.StatusAccepted, Response{
		Success: true,
		Data: &api.SubmitJobResponse{
			JobID:  jobID,
			Status: string(results.StatusQueued),
		},
	})
}

// HandleStatus 处理作业状态查询请求
// @Summary 查询作业状态
// @Description 按作业 ID 查询状态与答案
// @Tags 作业
// @Produce json
// @Param id path string true "作业 ID"
// @Success 200 {object} api.JobStatusResponse "作业状态"
// @Failure 404 {object} Response "作业不存在"
// @Failure 503 {object} Response "队列未配置"
// @Router /api/v1/jobs/{id} [get]
func (h *JobsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil || h.results == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrQueueNotConfigured,
			"job queue is not configured", h.logger)
		return
	}

	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "job id is required"), h.logger)
		return
	}

	result, err := h.results.Get(r.Context(), jobID)
	if err == results.ErrNotFound {
		WriteError(w, types.NewError(types.ErrJobNotFound, "job not found"), h.logger)
		return
	}
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to load job result").WithCause(err), h.logger)
		return
	}

	WriteSuccess(w, &api.JobStatusResponse{
		JobID:     result.JobID,
		Status:    string(result.Status),
		Answer:    result.Answer,
		Source:    result.Source,
		Error:     result.Error,
		CreatedAt: result.CreatedAt,
		UpdatedAt: result.UpdatedAt,
	})
}
