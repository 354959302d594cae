/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误
传播流程。同步问答网关与指标端点都经由它托管。

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM 并自动触发
    优雅关闭流程。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控服务异常。

写入超时默认放宽到两分钟，生成阶段需要等待上游模型完成响应.
*/
package server
