package module

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"sigrag/internal/cache"
	"sigrag/internal/metrics"
	"sigrag/llm"
	"sigrag/rag"
	"sigrag/store"
	"sigrag/types"
)

// Module 是一个签名驱动的推理模块: 接受命名输入, 返回带命名输出字段的预测.
type Module interface {
	Name() string
	Signature() Signature
	Forward(ctx context.Context, inputs map[string]string) (*types.Prediction, error)
}

// Deps 汇集构造模块所需的协作者.
// Completions 必填; Store 和 Collection 只在 EnhancedRAG 路径需要.
type Deps struct {
	Completions llm.CompletionProvider
	Store       store.Provider
	// EnhancedRAG 绑定的集合名称
	Collection string
	// EnhancedRAG 的检索配置(CollectionName 以 Collection 为准)
	RAGConfig rag.Config
	Cache     *cache.AnswerCache
	Collector *metrics.Collector
	Logger    *zap.Logger
}

// predict 单次补全模块: 输入字段 -> 输出字段, 无额外指令.
type predict struct {
	name        string
	sig         Signature
	instruction string
	predictor   *llm.Predictor
}

func newPredict(sig Signature, deps Deps) (Module, error) {
	if deps.Completions == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "completion provider is required")
	}
	return &predict{
		name:      "Predict",
		sig:       sig,
		predictor: llm.NewPredictor(deps.Completions, deps.Logger),
	}, nil
}

const chainOfThoughtInstruction = `Think step by step. Lay out your reasoning first, then give the remaining fields.`

func newChainOfThought(sig Signature, deps Deps) (Module, error) {
	if deps.Completions == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "completion provider is required")
	}
	// reasoning 作为首个输出字段要求模型先推理再作答
	outputs := sig.Outputs
	if !containsField(outputs, "reasoning") {
		outputs = append([]string{"reasoning"}, outputs...)
	}
	return &predict{
		name:        "ChainOfThought",
		sig:         Signature{Inputs: sig.Inputs, Outputs: outputs},
		instruction: chainOfThoughtInstruction,
		predictor:   llm.NewPredictor(deps.Completions, deps.Logger),
	}, nil
}

func (p *predict) Name() string         { return p.name }
func (p *predict) Signature() Signature { return p.sig }

// Forward 校验输入齐全后执行单次补全.
func (p *predict) Forward(ctx context.Context, inputs map[string]string) (*types.Prediction, error) {
	fields, err := bindInputs(p.sig, inputs)
	if err != nil {
		return nil, err
	}
	return p.predictor.Predict(ctx, p.instruction, fields, p.sig.Outputs)
}

// enhancedRAG 把多跳 RAG 管线封装成签名模块.
// 内部固定绑定一个集合; question 取签名里的 question 字段, 没有则取首个输入.
type enhancedRAG struct {
	sig           Signature
	questionField string
	pipeline      *rag.Module
}

func newEnhancedRAG(sig Signature, deps Deps) (Module, error) {
	if deps.Collection == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "collection_name must be provided")
	}
	if len(sig.Inputs) == 0 {
		return nil, types.NewError(types.ErrInvalidSignature, "signature needs a question input")
	}

	cfg := deps.RAGConfig
	cfg.CollectionName = deps.Collection
	if cfg.MaxContextTokens == 0 {
		cfg.MaxContextTokens = rag.DefaultConfig(deps.Collection).MaxContextTokens
	}

	pipeline, err := rag.New(cfg, rag.Deps{
		Store:       deps.Store,
		Completions: deps.Completions,
		Cache:       deps.Cache,
		Collector:   deps.Collector,
		Logger:      deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	questionField := sig.Inputs[0]
	if containsField(sig.Inputs, "question") {
		questionField = "question"
	}

	return &enhancedRAG{
		sig:           sig,
		questionField: questionField,
		pipeline:      pipeline,
	}, nil
}

func (m *enhancedRAG) Name() string         { return "EnhancedRAG" }
func (m *enhancedRAG) Signature() Signature { return m.sig }

// Forward 对 question 字段执行完整 RAG 管线.
func (m *enhancedRAG) Forward(ctx context.Context, inputs map[string]string) (*types.Prediction, error) {
	question, ok := inputs[m.questionField]
	if !ok || strings.TrimSpace(question) == "" {
		return nil, types.NewErrorf(types.ErrMissingInput,
			"missing input %q", m.questionField).WithField(m.questionField)
	}

	result, err := m.pipeline.Forward(ctx, question)
	if err != nil {
		return nil, err
	}

	pred := types.NewPrediction()
	for _, out := range m.sig.Outputs {
		switch out {
		case "reasoning_path":
			pred.Set(out, strings.Join(result.ReasoningPath, "\n"))
		default:
			pred.Set(out, result.Answer)
		}
	}
	return pred, nil
}

// bindInputs 按签名顺序把输入映射为字段, 缺失或空白输入立即报错.
func bindInputs(sig Signature, inputs map[string]string) ([]llm.Field, error) {
	fields := make([]llm.Field, 0, len(sig.Inputs))
	for _, name := range sig.Inputs {
		value, ok := inputs[name]
		if !ok || strings.TrimSpace(value) == "" {
			return nil, types.NewErrorf(types.ErrMissingInput,
				"missing input %q", name).WithField(name)
		}
		fields = append(fields, llm.Field{Name: name, Value: value})
	}
	return fields, nil
}

func containsField(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
