package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/lexrag/api"
	"github.com/BaSui01/lexrag/rag"
	"github.com/BaSui01/lexrag/types"
	"go.uber.org/zap"
)

// =============================================================================
// ⚖️ 同步问答 Handler
// =============================================================================

// AskAnswerer 问答服务接口
type AskAnswerer interface {
	Answer(ctx context.Context, question string) (*rag.Answer, error)
}

// AskHandler 同步问答处理器
type AskHandler struct {
	service AskAnswerer
	logger  *zap.Logger
}

// NewAskHandler 创建同步问答处理器。service 为 nil 表示管线未就绪，
// 请求一律返回 503.
func NewAskHandler(service AskAnswerer, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		service: service,
		logger:  logger,
	}
}

// HandleAsk 处理同步问答请求
// @Summary 法律问答
// @Description 对语料执行检索增强问答并返回答案
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body api.AskRequest true "问答请求"
// @Success 200 {object} api.AskResponse "答案"
// @Failure 400 {object} Response "无效请求"
// @Failure 503 {object} Response "管线未就绪"
// @Router /api/v1/ask [post]
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrPipelineNotReady,
			"answer pipeline is not ready", h.logger)
		return
	}

	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.AskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "question is required"), h.logger)
		return
	}

	start := time.Now()
	answer, err := h.service.Answer(r.Context(), req.Question)
	duration := time.Since(start)

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("question answered",
		zap.String("source", answer.Source),
		zap.Duration("duration", duration),
	)

	WriteSuccess(w, &api.AskResponse{
		Answer: answer.Text,
		Source: answer.Source,
	})
}

// handleServiceError 处理问答服务错误
func (h *AskHandler) handleServiceError(w http.ResponseWriter, err error) {
	if typedErr, ok := err.(*types.Error); ok {
		WriteError(w, typedErr, h.logger)
		return
	}

	internalErr := types.NewError(types.ErrInternalError, "answer service error").
		WithCause(err)
	WriteError(w, internalErr, h.logger)
}
