// 包 api 定义 HTTP 网关的请求与响应类型。同步问答、异步作业
// 提交与状态查询共用这里的结构，handlers 子包负责具体处理逻辑。
package api
