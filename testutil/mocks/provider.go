// =============================================================================
// MockCompletionProvider - 补全服务模拟实现
// =============================================================================
// 用于测试的脚本化补全提供者: 根据提示词中出现的输出字段识别管线阶段
// (transform / rewrite / synthesis), 返回预置响应并记录调用.
//
// 使用方法:
//
//	provider := mocks.NewMockCompletionProvider()
//	provider.TransformResponse("acme revenue", "sub a, sub b")
//	provider.FailStage("synthesis", errors.New("down"))
// =============================================================================
package mocks

import (
	"context"
	"strings"
	"sync"
)

// MockCompletionProvider 是 llm.CompletionProvider 的脚本化模拟.
type MockCompletionProvider struct {
	mu sync.Mutex

	// 预置响应
	transformResponse string
	answerResponse    string
	rewriteFn         func(contextText, question string) string

	// 错误注入: 按阶段
	stageErrs map[string]error

	// 调用记录
	prompts     []string
	stageCounts map[string]int
}

// NewMockCompletionProvider 创建带默认脚本的模拟提供者:
// transform 返回固定查询与两个子问题, rewrite 原样回显上下文, synthesis 返回固定答案.
func NewMockCompletionProvider() *MockCompletionProvider {
	return &MockCompletionProvider{
		transformResponse: "search_query: mock search query\nsub_questions: first follow-up, second follow-up",
		answerResponse:    "answer: This is the synthesized mock answer.",
		rewriteFn: func(contextText, _ string) string {
			return contextText
		},
		stageErrs:   make(map[string]error),
		stageCounts: make(map[string]int),
	}
}

// TransformResponse 设置查询转换的脚本输出.
func (m *MockCompletionProvider) TransformResponse(searchQuery, subQuestions string) *MockCompletionProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transformResponse = "search_query: " + searchQuery + "\nsub_questions: " + subQuestions
	return m
}

// RawTransformResponse 设置查询转换的原始响应文本.
func (m *MockCompletionProvider) RawTransformResponse(response string) *MockCompletionProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transformResponse = response
	return m
}

// AnswerResponse 设置合成阶段的答案.
func (m *MockCompletionProvider) AnswerResponse(answer string) *MockCompletionProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answerResponse = "answer: " + answer
	return m
}

// RewriteFunc 设置重写阶段的行为.
func (m *MockCompletionProvider) RewriteFunc(fn func(contextText, question string) string) *MockCompletionProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rewriteFn = fn
	return m
}

// FailStage 注入某个阶段的错误.
func (m *MockCompletionProvider) FailStage(stage string, err error) *MockCompletionProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageErrs[stage] = err
	return m
}

// StageCount 返回某个阶段的调用次数.
func (m *MockCompletionProvider) StageCount(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stageCounts[stage]
}

// Prompts 返回全部收到的提示词.
func (m *MockCompletionProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Complete 根据提示词识别阶段并返回脚本响应.
func (m *MockCompletionProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	stage := classifyPrompt(prompt)
	m.stageCounts[stage]++

	if err := m.stageErrs[stage]; err != nil {
		return "", err
	}

	switch stage {
	case "transform":
		return m.transformResponse, nil
	case "rewrite":
		contextText, question := extractRewriteInputs(prompt)
		return "focused_context: " + m.rewriteFn(contextText, question), nil
	default:
		return m.answerResponse, nil
	}
}

// classifyPrompt 按请求的输出字段识别阶段.
func classifyPrompt(prompt string) string {
	switch {
	case strings.Contains(prompt, "search_query: ..."):
		return "transform"
	case strings.Contains(prompt, "focused_context: ..."):
		return "rewrite"
	default:
		return "synthesis"
	}
}

// extractRewriteInputs 从重写提示词里取出 context 与 question 输入段.
func extractRewriteInputs(prompt string) (contextText, question string) {
	const ctxMarker = "\ncontext: "
	const qMarker = "\n\nquestion: "

	ctxStart := strings.Index(prompt, ctxMarker)
	qStart := strings.Index(prompt, qMarker)
	if ctxStart < 0 || qStart < 0 || qStart < ctxStart {
		return "", ""
	}

	contextText = prompt[ctxStart+len(ctxMarker) : qStart]
	rest := prompt[qStart+len(qMarker):]
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		rest = rest[:end]
	}
	return contextText, rest
}
