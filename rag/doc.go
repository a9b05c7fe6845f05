// Package rag 实现多跳检索增强生成管线:
// 问题经过查询转换得到主查询与子问题, 逐跳检索相似片段并重写为聚焦上下文,
// 最终把全部上下文与推理路径交给一次合成调用生成答案.
//
// 管线严格串行: 后续跳的查询依赖查询转换的结果, 推理路径的顺序是对外可见的.
// 检索失败降级为空片段继续执行; 补全失败作为致命错误向上传播.
package rag
