package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"sigrag/testutil/mocks"
)

// 推理路径长度必须等于 主查询数 + min(子问题数, MaxHops-1),
// 与子问题内容和检索结果无关.
func TestForward_PathLengthInvariant(t *testing.T) {
	questions := map[string]int{
		"Tell me about the acme partnership":           1, // 软化单查询
		"List all transactions with acme":              4, // 数据型变体
		"List all transactions in chronological order": 5, // 数据型 + 时间序
	}

	rapid.Check(t, func(rt *rapid.T) {
		question := rapid.SampledFrom([]string{
			"Tell me about the acme partnership",
			"List all transactions with acme",
			"List all transactions in chronological order",
		}).Draw(rt, "question")
		maxHops := rapid.IntRange(1, 6).Draw(rt, "max_hops")
		subCount := rapid.IntRange(0, 5).Draw(rt, "sub_count")

		subs := make([]string, subCount)
		for i := range subs {
			subs[i] = fmt.Sprintf("follow up %d", i+1)
		}
		provider := mockProviderWithSubs(subs)

		cfg := DefaultConfig("docs")
		cfg.MaxHops = maxHops
		module := newTestModule(t, cfg, provider, nil)

		result, err := module.Forward(context.Background(), question)
		require.NoError(rt, err)

		followUps := subCount
		if limit := maxHops - 1; followUps > limit {
			followUps = limit
		}
		want := questions[question] + followUps
		require.Len(rt, result.ReasoningPath, want)
		require.Len(rt, result.Contexts, want)
	})
}

func mockProviderWithSubs(subs []string) *mocks.MockCompletionProvider {
	raw := "none"
	if len(subs) > 0 {
		raw = strings.Join(subs, ", ")
	}
	return mocks.NewMockCompletionProvider().TransformResponse("generated query", raw)
}
