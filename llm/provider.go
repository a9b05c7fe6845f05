package llm

import (
	"context"

	"golang.org/x/time/rate"

	"sigrag/types"
)

// CompletionProvider 基于提示词生成补全文本.
// 实现负责自身的超时与重试策略; 管线把补全失败视为致命错误向上传播.
type CompletionProvider interface {
	// Complete 生成给定提示词的补全
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleteFunc 让普通函数充当 CompletionProvider.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements CompletionProvider.
func (f CompleteFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// RateLimitedProvider 用令牌桶限制下游补全调用的速率.
type RateLimitedProvider struct {
	inner   CompletionProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider 包装 provider, 限制为每秒 rps 个请求(突发 burst).
func NewRateLimitedProvider(inner CompletionProvider, rps float64, burst int) *RateLimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Complete 等待限流器放行后转发补全请求.
func (p *RateLimitedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", types.NewError(types.ErrCompletionFailed, "rate limiter wait interrupted").WithCause(err)
	}
	return p.inner.Complete(ctx, prompt)
}
