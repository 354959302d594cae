// Package openaicompat 实现 OpenAI 兼容协议的聊天补全 Provider。
// 评分服务(Groq)与生成服务(OpenRouter)共用同一实现，仅在
// BaseURL、模型与 Header 构建上有差异。
package openaicompat
