// Package llm 提供语言模型补全的统一接口:
// CompletionProvider 抽象底层模型, Predictor 把带命名输出字段的签名调用
// 渲染为单次补全并解析回结构化结果.
package llm
