// Package rerank 封装交叉编码器重排序服务，对召回的候选文档按查询
// 相关性重新打分。内置 Cohere 与 Jina AI 两种实现，通过配置选择。
package rerank
