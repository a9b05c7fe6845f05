package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigrag/internal/cache"
	"sigrag/store"
	"sigrag/testutil/mocks"
	"sigrag/types"
)

func newTestCollection(name string) *mocks.StaticCollection {
	return &mocks.StaticCollection{
		CollectionName: name,
		Results: []store.SearchResult{
			{DocumentID: "d1", Text: "Client A signed an enterprise license worth $50,000 on 2024-03-01.", Score: 0.9},
			{DocumentID: "d2", Text: "Client B ordered custom development for $75,000 in April.", Score: 0.6},
		},
	}
}

func newTestModule(t *testing.T, cfg Config, provider *mocks.MockCompletionProvider, sp store.Provider) *Module {
	t.Helper()
	if sp == nil {
		sp = mocks.NewStaticProvider().Add(newTestCollection(cfg.CollectionName))
	}
	module, err := New(cfg, Deps{Store: sp, Completions: provider})
	require.NoError(t, err)
	return module
}

func TestNew_EmptyCollectionName(t *testing.T) {
	_, err := New(Config{}, Deps{
		Store:       mocks.NewStaticProvider(),
		Completions: mocks.NewMockCompletionProvider(),
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.CodeOf(err))
	assert.Contains(t, err.Error(), "collection_name must be provided")
}

func TestNew_UnknownCollection(t *testing.T) {
	_, err := New(DefaultConfig("missing_docs"), Deps{
		Store:       mocks.NewStaticProvider(),
		Completions: mocks.NewMockCompletionProvider(),
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrCollectionNotFound, types.CodeOf(err))
	assert.Contains(t, err.Error(), "missing_docs")
}

func TestNew_MissingDeps(t *testing.T) {
	_, err := New(DefaultConfig("docs"), Deps{Completions: mocks.NewMockCompletionProvider()})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.CodeOf(err))

	_, err = New(DefaultConfig("docs"), Deps{Store: mocks.NewStaticProvider()})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.CodeOf(err))
}

func TestForward_EmptyQuestion(t *testing.T) {
	module := newTestModule(t, DefaultConfig("docs"), mocks.NewMockCompletionProvider(), nil)

	_, err := module.Forward(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidQuery, types.CodeOf(err))
}

func TestForward_Basic(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		TransformResponse("acme partnership details", "who signed it, when did it start").
		AnswerResponse("The partnership covers joint development.")
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	result, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "The partnership covers joint development.", result.Answer)

	// 非数据型问题: 一个软化主查询 + MaxHops-1 个子问题跳
	require.Len(t, result.ReasoningPath, 2)
	assert.Equal(t, "Initial search: acme partnership details looking for relevant details and context", result.ReasoningPath[0])
	assert.Equal(t, "Follow-up search 1: who signed it looking for supporting information and context", result.ReasoningPath[1])
	assert.Len(t, result.Contexts, 2)
	assert.Greater(t, result.Duration.Nanoseconds(), int64(0))
}

func TestForward_SpecificsQueryVariants(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		TransformResponse("acme transactions", "what were the dates, who were the clients")
	cfg := DefaultConfig("docs")
	cfg.MaxHops = 3
	module := newTestModule(t, cfg, provider, nil)

	result, err := module.Forward(context.Background(), "List all transactions with acme")
	require.NoError(t, err)

	// 数据型问题: 四个主查询变体 + 两个子问题跳
	require.Len(t, result.ReasoningPath, 6)
	assert.Equal(t, "Search: acme transactions", result.ReasoningPath[0])
	assert.Equal(t, "Search: acme transactions specific details dates amounts", result.ReasoningPath[1])
	assert.Equal(t, "Search: acme transactions all items complete list", result.ReasoningPath[2])
	assert.Equal(t, "Search: acme transactions including all information", result.ReasoningPath[3])
	assert.Equal(t, "Follow-up search 1: what were the dates including all specific details and complete information", result.ReasoningPath[4])
	assert.Equal(t, "Follow-up search 2: who were the clients including all specific details and complete information", result.ReasoningPath[5])
}

func TestForward_ChronologicalAddsFifthVariant(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		TransformResponse("acme transactions", "none")
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	result, err := module.Forward(context.Background(), "List all transactions in chronological order")
	require.NoError(t, err)

	require.Len(t, result.ReasoningPath, 5)
	assert.Equal(t, "Search: acme transactions in chronological order by date", result.ReasoningPath[4])
}

func TestForward_HopCountIdempotent(t *testing.T) {
	provider := mocks.NewMockCompletionProvider()
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	first, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)
	second, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)

	assert.Equal(t, first.ReasoningPath, second.ReasoningPath)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestForward_SubQuestionListAndStringEquivalent(t *testing.T) {
	asString := mocks.NewMockCompletionProvider().
		RawTransformResponse("search_query: q\nsub_questions: first follow-up, second follow-up")
	asList := mocks.NewMockCompletionProvider().
		RawTransformResponse(`search_query: q` + "\n" + `sub_questions: ["first follow-up", "second follow-up"]`)

	cfg := DefaultConfig("docs")
	cfg.MaxHops = 3

	fromString, err := newTestModule(t, cfg, asString, nil).Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)
	fromList, err := newTestModule(t, cfg, asList, nil).Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)

	assert.Equal(t, fromString.ReasoningPath, fromList.ReasoningPath)
}

func TestForward_MalformedSubQuestions(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		RawTransformResponse(`search_query: q` + "\n" + `sub_questions: {"first": "a"}`)
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	_, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedResponse, types.CodeOf(err))
}

func TestForward_DegradedRetrievalStillAnswers(t *testing.T) {
	failing := &mocks.StaticCollection{
		CollectionName: "docs",
		Err:            errors.New("vector store offline"),
	}
	provider := mocks.NewMockCompletionProvider().
		AnswerResponse("No supporting documents were found.")
	module := newTestModule(t, DefaultConfig("docs"), provider, mocks.NewStaticProvider().Add(failing))

	result, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)
	assert.Equal(t, "No supporting documents were found.", result.Answer)
	assert.NotEmpty(t, result.ReasoningPath)
	assert.Greater(t, failing.Calls(), 0)
}

func TestForward_TransformFailurePropagates(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		FailStage("transform", errors.New("model down"))
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	_, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.Error(t, err)
	assert.Equal(t, types.ErrCompletionFailed, types.CodeOf(err))

	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "transform", te.Stage)
}

func TestForward_SynthesisFailurePropagates(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		FailStage("synthesis", errors.New("model down"))
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	_, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.Error(t, err)

	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "synthesis", te.Stage)
}

func TestForward_AnswerCache(t *testing.T) {
	mr := miniredis.RunT(t)
	answerCache := cache.New(cache.Config{Enabled: true, Addr: mr.Addr()}, nil)
	defer answerCache.Close()

	provider := mocks.NewMockCompletionProvider().
		AnswerResponse("cached answer")
	sp := mocks.NewStaticProvider().Add(newTestCollection("docs"))
	module, err := New(DefaultConfig("docs"), Deps{
		Store:       sp,
		Completions: provider,
		Cache:       answerCache,
	})
	require.NoError(t, err)

	first, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)
	assert.Equal(t, "cached answer", first.Answer)
	transformCalls := provider.StageCount("transform")

	// 第二次命中缓存, 不再调用模型
	second, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)
	assert.Equal(t, "cached answer", second.Answer)
	assert.Empty(t, second.ReasoningPath)
	assert.Equal(t, transformCalls, provider.StageCount("transform"))
}

func TestModules_IndependentCollections(t *testing.T) {
	sp := mocks.NewStaticProvider().
		Add(newTestCollection("finance")).
		Add(newTestCollection("legal"))
	provider := mocks.NewMockCompletionProvider()

	m1, err := New(DefaultConfig("finance"), Deps{Store: sp, Completions: provider})
	require.NoError(t, err)
	m2, err := New(DefaultConfig("legal"), Deps{Store: sp, Completions: provider})
	require.NoError(t, err)

	assert.NotSame(t, m1.retriever, m2.retriever)
	assert.Equal(t, "finance", m1.retriever.Collection())
	assert.Equal(t, "legal", m2.retriever.Collection())
}

func TestForwardBatch(t *testing.T) {
	provider := mocks.NewMockCompletionProvider()
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	questions := []string{
		"Tell me about the acme partnership",
		"Describe the support agreement",
		"Summarize the renewal terms",
	}
	results, err := module.ForwardBatch(context.Background(), questions)
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := make(map[string]bool)
	for _, res := range results {
		require.NotNil(t, res)
		assert.NotEmpty(t, res.Answer)
		assert.False(t, seen[res.RunID], "run ids must be unique")
		seen[res.RunID] = true
	}
}

func TestForwardBatch_FailureAborts(t *testing.T) {
	provider := mocks.NewMockCompletionProvider().
		FailStage("synthesis", errors.New("model down"))
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	_, err := module.ForwardBatch(context.Background(), []string{"Tell me about the acme partnership"})
	require.Error(t, err)
}

func TestForward_ContextsJoinedWithSeparator(t *testing.T) {
	var synthesisPrompt string
	provider := mocks.NewMockCompletionProvider()
	module := newTestModule(t, DefaultConfig("docs"), provider, nil)

	result, err := module.Forward(context.Background(), "Tell me about the acme partnership")
	require.NoError(t, err)
	require.Len(t, result.Contexts, 2)

	for _, prompt := range provider.Prompts() {
		if strings.Contains(prompt, "reasoning_path: ") {
			synthesisPrompt = prompt
		}
	}
	require.NotEmpty(t, synthesisPrompt)
	assert.Contains(t, synthesisPrompt, contextSeparator)
}
