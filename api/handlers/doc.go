// 包 handlers 实现 HTTP 网关的处理器：同步问答（/api/v1/ask）、
// 异步作业提交与状态查询（/api/v1/jobs）以及健康检查与版本端点。
// 所有响应走统一的 Response 封装，错误码由 types 包定义并映射到
// HTTP 状态码。
package handlers
