package rag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lexrag/types"
)

// Retriever 检索阶段接口
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]Candidate, error)
}

// CandidateReranker 重排阶段接口
type CandidateReranker interface {
	Rerank(ctx context.Context, question string, candidates []Candidate) ([]Candidate, error)
}

// CandidateGrader 评分阶段接口
type CandidateGrader interface {
	Grade(ctx context.Context, question string, candidates []Candidate) ([]Candidate, error)
}

// AnswerGenerator 生成阶段接口
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, candidates []Candidate) (string, error)
}

// StageObserver 在每个阶段完成后接收耗时与结果，用于指标上报.
type StageObserver interface {
	ObserveStage(stage string, duration time.Duration, err error)
}

// Pipeline 固定拓扑的管线编排器:
//
//	RETRIEVE → RERANK → GRADE → {GENERATE | SKIP} → DONE
//
// 所有后端客户端在启动时构建一次，此后只读；每次 Run 独占一个
// 新构造的 State，可被任意多个调用方并发执行.
type Pipeline struct {
	retriever Retriever
	reranker  CandidateReranker
	grader    CandidateGrader
	generator AnswerGenerator
	observer  StageObserver
	logger    *zap.Logger
}

// NewPipeline 组装管线。observer 可为 nil.
func NewPipeline(
	retriever Retriever,
	reranker CandidateReranker,
	grader CandidateGrader,
	generator AnswerGenerator,
	observer StageObserver,
	logger *zap.Logger,
) (*Pipeline, error) {
	if retriever == nil || reranker == nil || grader == nil || generator == nil {
		return nil, fmt.Errorf("pipeline requires retriever, reranker, grader and generator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		retriever: retriever,
		reranker:  reranker,
		grader:    grader,
		generator: generator,
		observer:  observer,
		logger:    logger.With(zap.String("component", "pipeline")),
	}, nil
}

// Run 对一个问题执行完整管线。任一阶段失败即中止本次调用，
// 不做阶段级重试.
func (p *Pipeline) Run(ctx context.Context, question string) (*State, error) {
	if question == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "question must not be empty")
	}

	state := NewState(question)
	start := time.Now()

	// RETRIEVE
	candidates, err := p.runStage(ctx, StageRetrieve, state, func() ([]Candidate, error) {
		return p.retriever.Retrieve(ctx, state.Question)
	})
	if err != nil {
		return nil, types.NewError(types.ErrRetrievalFailed, err.Error()).
			WithStage(string(StageRetrieve)).WithCause(err)
	}
	state.Documents = candidates

	// RERANK
	candidates, err = p.runStage(ctx, StageRerank, state, func() ([]Candidate, error) {
		return p.reranker.Rerank(ctx, state.Question, state.Documents)
	})
	if err != nil {
		return nil, types.NewError(types.ErrRerankFailed, err.Error()).
			WithStage(string(StageRerank)).WithCause(err)
	}
	state.Documents = candidates

	// GRADE
	candidates, err = p.runStage(ctx, StageGrade, state, func() ([]Candidate, error) {
		return p.grader.Grade(ctx, state.Question, state.Documents)
	})
	if err != nil {
		return nil, types.NewError(types.ErrGradingFailed, err.Error()).
			WithStage(string(StageGrade)).WithCause(err)
	}
	state.Documents = candidates

	// 路由决策：评分后无候选则跳过生成
	route := p.route(state)

	switch route {
	case RouteSkip:
		state.Generation = FallbackAnswer
	case RouteGenerate:
		stageStart := time.Now()
		generation, err := p.generator.Generate(ctx, state.Question, state.Documents)
		p.observe(string(StageGenerate), time.Since(stageStart), err)
		if err != nil {
			return nil, types.NewError(types.ErrGenerationFailed, err.Error()).
				WithStage(string(StageGenerate)).WithCause(err)
		}
		state.Generation = generation
	}

	p.logger.Info("pipeline complete",
		zap.String("route", route.String()),
		zap.Int("final_candidates", len(state.Documents)),
		zap.Duration("duration", time.Since(start)))

	return state, nil
}

// route 返回评分阶段之后的路由决策.
func (p *Pipeline) route(state *State) Route {
	if len(state.Documents) == 0 {
		return RouteSkip
	}
	return RouteGenerate
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, state *State, fn func() ([]Candidate, error)) ([]Candidate, error) {
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	p.observe(string(stage), elapsed, err)

	if err != nil {
		p.logger.Error("pipeline stage failed",
			zap.String("stage", string(stage)),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, err
	}

	p.logger.Debug("pipeline stage complete",
		zap.String("stage", string(stage)),
		zap.Int("candidates", len(out)),
		zap.Duration("duration", elapsed))

	return out, nil
}

func (p *Pipeline) observe(stage string, d time.Duration, err error) {
	if p.observer != nil {
		p.observer.ObserveStage(stage, d, err)
	}
}
