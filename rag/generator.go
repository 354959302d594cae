package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/BaSui01/lexrag/llm"
)

// FallbackAnswer 评分后候选为空时返回的固定答案.
const FallbackAnswer = "I could not find relevant legal information to answer this."

const generatorPromptTemplate = `Answer based ONLY on context:
%s

Question:
%s`

// GeneratorConfig 生成配置
type GeneratorConfig struct {
	Model            string  `json:"model" yaml:"model"`
	Temperature      float32 `json:"temperature" yaml:"temperature"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens"`
	MaxContextTokens int     `json:"max_context_tokens" yaml:"max_context_tokens"` // 上下文 token 预算
}

// DefaultGeneratorConfig 返回默认生成配置
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Model:            "mistralai/mixtral-8x7b-instruct",
		MaxTokens:        1024,
		MaxContextTokens: 3000,
	}
}

// Generator 从存活候选拼接上下文并产出最终答案。
// 候选为空时不调用模型，直接返回 FallbackAnswer.
type Generator struct {
	config   GeneratorConfig
	provider llm.Provider
	encoder  *tiktoken.Tiktoken
	logger   *zap.Logger
}

// NewGenerator 创建生成器。tiktoken 编码表不可用时退化为按字符
// 估算 token 数，不阻塞启动.
func NewGenerator(config GeneratorConfig, provider llm.Provider, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxContextTokens <= 0 {
		config.MaxContextTokens = 3000
	}
	logger = logger.With(zap.String("component", "generator"))

	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, using approximate token counts", zap.Error(err))
		encoder = nil
	}

	return &Generator{
		config:   config,
		provider: provider,
		encoder:  encoder,
		logger:   logger,
	}
}

// countTokens 统计文本 token 数，无编码器时按 4 字符/token 估算.
func (g *Generator) countTokens(text string) int {
	if g.encoder != nil {
		return len(g.encoder.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// Generate 生成有据可依的答案，模型输出原样返回.
func (g *Generator) Generate(ctx context.Context, question string, candidates []Candidate) (string, error) {
	if len(candidates) == 0 {
		return FallbackAnswer, nil
	}

	contextBlock := g.buildContext(candidates)
	prompt := fmt.Sprintf(generatorPromptTemplate, contextBlock, question)

	resp, err := g.provider.Completion(ctx, &llm.ChatRequest{
		Model:       g.config.Model,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	return resp.Text(), nil
}

// buildContext 按候选顺序拼接文档文本，并按 token 预算截断。
// 超出预算时丢弃整块后续文档，不在块中间截断.
func (g *Generator) buildContext(candidates []Candidate) string {
	var parts []string
	used := 0

	for _, c := range candidates {
		tokens := g.countTokens(c.Document.Content)
		if used+tokens > g.config.MaxContextTokens && len(parts) > 0 {
			g.logger.Debug("context budget reached, truncating",
				zap.Int("used_tokens", used),
				zap.Int("dropped_from", len(parts)))
			break
		}
		parts = append(parts, c.Document.Content)
		used += tokens
	}

	return strings.Join(parts, "\n\n")
}
