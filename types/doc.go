// Package types 定义 LexRAG 共享的错误类型与错误码。
package types
