/*
包 embedding 提供统一的文本嵌入（Embedding）接口与多服务商实现，
用于将法律文档与用户问题转换为向量表示以支持语义检索。

# 核心接口

  - Provider：统一嵌入接口，定义 Embed、EmbedQuery、EmbedDocuments 等方法。
  - EmbeddingRequest / EmbeddingResponse：标准化的请求与响应模型。
  - BaseProvider：公共基类，封装 HTTP 请求、错误映射与批量辅助方法。

# 使用方式

	cfg := embedding.DefaultHuggingFaceConfig()
	cfg.APIKey = "hf_..."
	provider := embedding.NewHuggingFaceProvider(cfg)

	vec, err := provider.EmbedQuery(ctx, "data retention requirements")
	vecs, err := provider.EmbedDocuments(ctx, []string{"chunk 1", "chunk 2"})
*/
package embedding
