/*
包 rag 实现 LexRAG 的核心检索增强问答管线。

管线是一个固定拓扑的状态机:

	RETRIEVE → RERANK → GRADE → {GENERATE | SKIP} → DONE

  - HybridRetriever 并行查询 BM25 词法索引与向量存储，归一化后
    线性加权融合两个排名列表。
  - Reranker 用交叉编码器对融合候选重新打分并截断到 top-k。
  - Grader 用判断模型逐个核验候选相关性，过滤保序，
    解析失败按不相关处理。
  - Generator 从存活候选拼接上下文生成有据可依的答案；
    候选为空时返回固定回退答案且不调用模型。

AnswerService 是缓存门控，同步网关与队列 worker 统一经由它调用
管线，保证缓存键派生在所有入口一致。
*/
package rag
