/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、
RAG 管线、LLM、答案缓存与作业队列五个维度。

Collector 通过 promauto 注册全部指标，按 namespace 隔离。
它同时实现管线的阶段观察接口与缓存门控的查询观察接口，
直接挂到 rag.Pipeline 与 rag.AnswerService 上即可采集：

  - HTTP 指标：请求总数与耗时，按 method/path/status 分组，
    状态码归类为 2xx/3xx/4xx/5xx。
  - 管线指标：各阶段耗时直方图与失败计数，按 stage 分组。
  - LLM 指标：请求总数、耗时、Token 用量（prompt/completion），
    按 provider/model 分组。
  - 缓存指标：答案缓存命中与未命中计数。
  - 队列指标：作业入队、完成与失败计数。
*/
package metrics
