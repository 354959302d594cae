package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lexrag/llm"
)

const graderPromptTemplate = `Grade relevance (yes/no). JSON out: {"score": "yes"}. Doc: %s
Q: %s`

// GraderConfig 相关性评分配置
type GraderConfig struct {
	Model       string  `json:"model" yaml:"model"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
}

// DefaultGraderConfig 返回默认评分配置
func DefaultGraderConfig() GraderConfig {
	return GraderConfig{Model: "llama-3.1-8b-instant"}
}

// graderVerdict 评分模型的 JSON 裁决
type graderVerdict struct {
	Score string `json:"score"`
}

// Grader 用判断模型逐个核验候选文档与问题的相关性。
// 过滤只做删除不做重排；无法解析的裁决按不相关处理（fail-closed）.
type Grader struct {
	config   GraderConfig
	provider llm.Provider
	logger   *zap.Logger
}

// NewGrader 创建相关性评分器
func NewGrader(config GraderConfig, provider llm.Provider, logger *zap.Logger) *Grader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grader{
		config:   config,
		provider: provider,
		logger:   logger.With(zap.String("component", "grader")),
	}
}

// Grade 过滤候选集，保序。上游模型调用失败中止本次调用；
// 裁决解析失败仅丢弃该候选，继续处理其余候选.
func (g *Grader) Grade(ctx context.Context, question string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		relevant, err := g.gradeOne(ctx, question, c)
		if err != nil {
			return nil, fmt.Errorf("grade candidate %s: %w", c.Document.ID, err)
		}
		if relevant {
			kept = append(kept, c)
		}
	}

	g.logger.Debug("grading complete",
		zap.Int("in", len(candidates)),
		zap.Int("kept", len(kept)))

	return kept, nil
}

func (g *Grader) gradeOne(ctx context.Context, question string, c Candidate) (bool, error) {
	prompt := fmt.Sprintf(graderPromptTemplate, c.Document.Content, question)

	resp, err := g.provider.Completion(ctx, &llm.ChatRequest{
		Model:       g.config.Model,
		Temperature: g.config.Temperature,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return false, err
	}

	verdict, ok := parseVerdict(resp.Text())
	if !ok {
		g.logger.Warn("unparseable grader verdict, dropping candidate",
			zap.String("doc_id", c.Document.ID),
			zap.String("raw", resp.Text()))
		return false, nil
	}
	return verdict, nil
}

// parseVerdict 从模型输出中提取 {"score": "yes"|"no"}。
// 模型偶尔会在 JSON 外包裹说明文字，尝试截取首个 JSON 对象.
func parseVerdict(raw string) (relevant bool, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return false, false
	}

	var v graderVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return false, false
	}

	switch strings.ToLower(strings.TrimSpace(v.Score)) {
	case "yes":
		return true, true
	case "no":
		return false, true
	default:
		return false, false
	}
}
