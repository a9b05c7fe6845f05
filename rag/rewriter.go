package rag

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sigrag/internal/metrics"
	"sigrag/llm"
	"sigrag/types"
)

// rewriteInstruction 上下文重写指令. 对模型是尽力而为的约束,
// 实体保真只能靠测试检查具体 token 是否保留.
const rewriteInstruction = `Rewrite the context to focus on the question.
1. Keep all specific details like client names, dates, and amounts exactly as they appear
2. Keep the original wording for key facts and figures
3. Only remove or summarize parts that are not relevant to the question
4. Preserve the structure of lists and bullet points`

// Rewriter 把一批检索片段压缩为针对某个问题的聚焦上下文.
type Rewriter struct {
	predictor        *llm.Predictor
	maxContextTokens int
	collector        *metrics.Collector
	logger           *zap.Logger
}

// NewRewriter 创建上下文重写器. maxContextTokens <= 0 时不截断.
func NewRewriter(predictor *llm.Predictor, maxContextTokens int, collector *metrics.Collector, logger *zap.Logger) *Rewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{
		predictor:        predictor,
		maxContextTokens: maxContextTokens,
		collector:        collector,
		logger:           logger.With(zap.String("component", "context_rewriter")),
	}
}

// Rewrite 执行单次补全, 返回聚焦上下文.
func (w *Rewriter) Rewrite(ctx context.Context, contextText, question string) (string, error) {
	contextText = llm.TruncateTokens(contextText, w.maxContextTokens)

	start := time.Now()
	pred, err := w.predictor.Predict(ctx, rewriteInstruction,
		[]llm.Field{
			{Name: "context", Value: contextText},
			{Name: "question", Value: question},
		},
		[]string{"focused_context"})
	if w.collector != nil {
		w.collector.ObserveCompletion("rewrite", time.Since(start))
	}
	if err != nil {
		if te, ok := err.(*types.Error); ok {
			return "", te.WithStage("rewrite")
		}
		return "", types.NewError(types.ErrCompletionFailed, "context rewrite failed").
			WithStage("rewrite").WithCause(err)
	}

	focused, _ := pred.Get("focused_context")

	w.logger.Debug("context rewritten",
		zap.Int("input_chars", len(contextText)),
		zap.Int("output_chars", len(focused)))

	return focused, nil
}
