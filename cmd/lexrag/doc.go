// Package main 实现 lexrag 可执行文件。
//
// 同一个二进制承载三种角色:
//
//   - serve:  HTTP 网关，提供同步问答与异步作业接口
//   - worker: 队列消费者，处理异步作业并写回结果
//   - ingest: 离线语料摄取，嵌入后写入 Pinecone
//
// 网关与 worker 共用同一套管线构建逻辑 (buildAnswerService)，
// 保证两条路径的检索、重排、评分与生成行为一致.
package main
