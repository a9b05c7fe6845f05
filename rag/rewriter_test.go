package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sigrag/llm"
	"sigrag/testutil/mocks"
	"sigrag/types"
)

func newTestRewriter(provider *mocks.MockCompletionProvider, maxTokens int) *Rewriter {
	return NewRewriter(llm.NewPredictor(provider, zap.NewNop()), maxTokens, nil, zap.NewNop())
}

func TestRewriter_PreservesEntities(t *testing.T) {
	// 回显型重写: 模型原样返回上下文时, 所有关键实体必须原样出现在输出里
	provider := mocks.NewMockCompletionProvider()
	rewriter := newTestRewriter(provider, 0)

	contextText := strings.Join([]string{
		"Client A signed an enterprise license worth $50,000 on 2024-03-01.",
		"Client B ordered custom development for $75,000 in April.",
	}, "\n\n")

	focused, err := rewriter.Rewrite(context.Background(), contextText, "What did each client buy?")
	require.NoError(t, err)

	lower := strings.ToLower(focused)
	for _, entity := range []string{"client a", "client b", "50,000", "75,000", "enterprise license", "custom development"} {
		assert.Contains(t, lower, entity)
	}
}

func TestRewriter_PassesQuestionToModel(t *testing.T) {
	var gotQuestion string
	provider := mocks.NewMockCompletionProvider().
		RewriteFunc(func(contextText, question string) string {
			gotQuestion = question
			return "focused"
		})
	rewriter := newTestRewriter(provider, 0)

	focused, err := rewriter.Rewrite(context.Background(), "some context", "which dates matter?")
	require.NoError(t, err)
	assert.Equal(t, "focused", focused)
	assert.Equal(t, "which dates matter?", gotQuestion)
}

func TestRewriter_TruncatesOversizedContext(t *testing.T) {
	var gotContext string
	provider := mocks.NewMockCompletionProvider().
		RewriteFunc(func(contextText, _ string) string {
			gotContext = contextText
			return contextText
		})
	rewriter := newTestRewriter(provider, 10)

	long := strings.Repeat("alpha beta gamma delta ", 50)
	_, err := rewriter.Rewrite(context.Background(), long, "question")
	require.NoError(t, err)
	assert.Less(t, len(gotContext), len(long))
	assert.LessOrEqual(t, llm.CountTokens(gotContext), 10)
}

func TestRewriter_CompletionFailure(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		FailStage("rewrite", errors.New("model down"))
	rewriter := newTestRewriter(provider, 0)

	_, err := rewriter.Rewrite(context.Background(), "ctx", "q")
	require.Error(t, err)
	assert.Equal(t, types.ErrCompletionFailed, types.CodeOf(err))

	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "rewrite", te.Stage)
}
