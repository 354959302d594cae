// Package llm 定义统一的大语言模型 Provider 接口与通用数据结构。
//
// 子包 openaicompat 提供 OpenAI 兼容协议的具体实现，覆盖 Groq 与
// OpenRouter 等上游;embedding 与 rerank 分别封装向量化与重排序服务。
package llm
