// 包 telemetry 封装 OpenTelemetry SDK 的初始化与关闭。启用时通过
// OTLP gRPC 导出 trace 与 metric；关闭时全局 provider 保持 noop，
// 不连接任何外部服务。
package telemetry
