package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"sigrag/types"
)

// Field 是一次预测调用的命名输入.
type Field struct {
	Name  string
	Value string
}

// Predictor 把 "inputs -> outputs" 形式的签名调用渲染为单次补全:
// 输入字段逐行写入提示词, 输出字段以 `name: value` 行的形式要求模型返回,
// 然后解析回 Prediction. 这是所有推理模块共用的底层管道.
type Predictor struct {
	provider CompletionProvider
	logger   *zap.Logger
}

// NewPredictor 创建 Predictor.
func NewPredictor(provider CompletionProvider, logger *zap.Logger) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{
		provider: provider,
		logger:   logger.With(zap.String("component", "predictor")),
	}
}

// Predict 执行一次带命名输出字段的补全.
// instruction 可以为空; outputs 至少要有一个字段.
func (p *Predictor) Predict(ctx context.Context, instruction string, inputs []Field, outputs []string) (*types.Prediction, error) {
	if len(outputs) == 0 {
		return nil, types.NewError(types.ErrInvalidSignature, "at least one output field is required")
	}

	prompt := p.buildPrompt(instruction, inputs, outputs)

	response, err := p.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, types.NewError(types.ErrCompletionFailed, "completion call failed").WithCause(err)
	}

	pred, err := parseFields(response, outputs)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("prediction parsed",
		zap.Strings("outputs", outputs),
		zap.Int("response_chars", len(response)))

	return pred, nil
}

// buildPrompt 渲染提示词: 指令 + 输入字段 + 输出字段要求.
func (p *Predictor) buildPrompt(instruction string, inputs []Field, outputs []string) string {
	var b strings.Builder

	if instruction != "" {
		b.WriteString(strings.TrimSpace(instruction))
		b.WriteString("\n\n")
	}

	for _, in := range inputs {
		b.WriteString(in.Name)
		b.WriteString(": ")
		b.WriteString(in.Value)
		b.WriteString("\n\n")
	}

	b.WriteString("Respond with exactly the following fields, in this order, each starting on its own line as `name: value`. A value may span multiple lines until the next field name.\n\n")
	for _, out := range outputs {
		b.WriteString(out)
		b.WriteString(": ...\n")
	}

	return b.String()
}

// parseFields 从自由文本响应中提取命名输出字段.
// 字段名行允许可选的 markdown 强调与编号前缀, 值持续到下一个字段名行.
func parseFields(response string, outputs []string) (*types.Prediction, error) {
	matchers := make(map[string]*regexp.Regexp, len(outputs))
	for _, out := range outputs {
		// 例: "search_query:", "**search_query**:", "2. search_query:"
		pattern := fmt.Sprintf(`(?i)^\s*(?:\d+[\.\)]\s*)?\*{0,2}%s\*{0,2}\s*:\s*(.*)$`, regexp.QuoteMeta(out))
		matchers[out] = regexp.MustCompile(pattern)
	}

	pred := types.NewPrediction()
	var current string
	var value strings.Builder

	flush := func() {
		if current != "" {
			pred.Set(current, strings.TrimSpace(value.String()))
			value.Reset()
		}
	}

	for _, line := range strings.Split(response, "\n") {
		matched := false
		for _, out := range outputs {
			if m := matchers[out].FindStringSubmatch(line); m != nil {
				flush()
				current = out
				value.WriteString(m[1])
				matched = true
				break
			}
		}
		if !matched && current != "" {
			value.WriteString("\n")
			value.WriteString(line)
		}
	}
	flush()

	// 单输出字段的宽松路径: 模型直接返回了值而没有字段名前缀
	if len(outputs) == 1 {
		if _, ok := pred.Get(outputs[0]); !ok {
			trimmed := strings.TrimSpace(response)
			if trimmed == "" {
				return nil, types.NewErrorf(types.ErrMalformedResponse,
					"response missing output field %q", outputs[0]).WithField(outputs[0])
			}
			pred.Set(outputs[0], trimmed)
			return pred, nil
		}
	}

	for _, out := range outputs {
		if _, ok := pred.Get(out); !ok {
			return nil, types.NewErrorf(types.ErrMalformedResponse,
				"response missing output field %q", out).WithField(out)
		}
	}

	return pred, nil
}
