package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sigrag/internal/cache"
	"sigrag/internal/metrics"
	"sigrag/internal/telemetry"
	"sigrag/llm"
	"sigrag/store"
	"sigrag/types"
)

// contextSeparator 合成前各跳聚焦上下文之间的可见分隔符.
const contextSeparator = "\n\n---\n\n"

// synthesisInstruction 最终合成指令.
const synthesisInstruction = `Answer the question from the context and the reasoning path.
1. Include ALL specific details from the context that are relevant to the question
2. Keep exact numbers, dates, and amounts as they appear in the context
3. If listing items, make sure to include ALL items from the context
4. Maintain the original wording for technical terms and proper nouns
5. If the question asks for a list, ensure ALL items are included in the response
6. If the question asks for chronological order, list items by date from earliest to latest
7. For transactions, always include the date, amount, client, and type of transaction`

// Config 是模块的固定配置, 构造后不可变.
type Config struct {
	// 绑定的集合名称
	CollectionName string `yaml:"collection_name" json:"collection_name"`
	// 每跳检索条数
	K int `yaml:"k" json:"k"`
	// 总跳数上限(主跳之外最多 MaxHops-1 个子问题跳)
	MaxHops int `yaml:"max_hops" json:"max_hops"`
	// 问题分类关键词
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`
	// 单跳重写的上下文 token 预算, <=0 不截断
	MaxContextTokens int `yaml:"max_context_tokens" json:"max_context_tokens"`
}

// DefaultConfig 返回绑定到 collection 的默认配置.
func DefaultConfig(collection string) Config {
	return Config{
		CollectionName:   collection,
		K:                3,
		MaxHops:          2,
		Classifier:       DefaultClassifierConfig(),
		MaxContextTokens: 3000,
	}
}

// Deps 汇集模块的外部协作者. Store 和 Completions 必填.
type Deps struct {
	Store       store.Provider
	Completions llm.CompletionProvider
	// 可选: 按 (collection, question) 缓存最终答案
	Cache *cache.AnswerCache
	// 可选: 指标收集器, 缺省时使用私有注册表
	Collector *metrics.Collector
	Logger    *zap.Logger
}

// Result 是一次 Forward 的完整产出.
type Result struct {
	RunID         string        `json:"run_id"`
	Answer        string        `json:"answer"`
	ReasoningPath []string      `json:"reasoning_path"`
	Contexts      []string      `json:"contexts"`
	Duration      time.Duration `json:"duration"`
}

// Module 是多跳 RAG 编排器. 集合/k/max_hops 在构造时固定;
// Forward 调用之间不共享可变状态, 同一实例可安全复用.
type Module struct {
	cfg         Config
	classifier  *Classifier
	retriever   *Retriever
	transformer *Transformer
	rewriter    *Rewriter
	predictor   *llm.Predictor
	answerCache *cache.AnswerCache
	collector   *metrics.Collector
	logger      *zap.Logger
}

// New 创建绑定到固定集合的 RAG 模块.
// 配置错误(空集合名/未知集合)在这里立即失败, 不会推迟到 Forward.
func New(cfg Config, deps Deps) (*Module, error) {
	if cfg.CollectionName == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "collection_name must be provided")
	}
	if deps.Store == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "store provider is required")
	}
	if deps.Completions == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "completion provider is required")
	}
	if cfg.K <= 0 {
		cfg.K = 3
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 2
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "rag_module"), zap.String("collection", cfg.CollectionName))

	collector := deps.Collector
	if collector == nil {
		collector = metrics.NewCollector("sigrag", prometheus.NewRegistry(), logger)
	}

	retriever, err := NewRetriever(deps.Store, cfg.CollectionName, cfg.K, collector, logger)
	if err != nil {
		return nil, err
	}

	predictor := llm.NewPredictor(deps.Completions, logger)

	return &Module{
		cfg:         cfg,
		classifier:  NewClassifier(cfg.Classifier),
		retriever:   retriever,
		transformer: NewTransformer(predictor, collector, logger),
		rewriter:    NewRewriter(predictor, cfg.MaxContextTokens, collector, logger),
		predictor:   predictor,
		answerCache: deps.Cache,
		collector:   collector,
		logger:      logger,
	}, nil
}

// Forward 对一个问题执行完整管线并返回答案.
// 阶段严格按 分类 → 转换 → 逐跳检索+重写 → 合成 的顺序执行.
func (m *Module) Forward(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, types.NewError(types.ErrInvalidQuery, "question cannot be empty")
	}

	if m.answerCache != nil {
		if answer, ok := m.answerCache.Get(ctx, m.cfg.CollectionName, question); ok {
			m.collector.IncCacheHit()
			m.logger.Debug("answer cache hit", zap.String("question", question))
			return &Result{RunID: uuid.NewString(), Answer: answer}, nil
		}
		m.collector.IncCacheMiss()
	}

	runID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "rag.forward",
		attribute.String("run_id", runID),
		attribute.String("collection", m.cfg.CollectionName))
	defer span.End()

	start := time.Now()
	logger := m.logger.With(zap.String("run_id", runID))

	// 1. 轻量关键词分类, 不经过模型
	class := m.classifier.Classify(question)
	logger.Debug("question classified",
		zap.Bool("needs_specifics", class.NeedsSpecifics),
		zap.Bool("needs_chronological", class.NeedsChronological))

	// 2. 查询转换
	transformed, err := m.transformer.Transform(ctx, question)
	if err != nil {
		return nil, err
	}

	var reasoningPath []string
	var contexts []string

	// 3. 主跳: 要具体数据的问题用多个查询变体, 否则单个软化查询
	if class.NeedsSpecifics {
		for _, query := range primaryQueries(transformed.SearchQuery, class) {
			focused, err := m.runHop(ctx, "primary", query, question, logger)
			if err != nil {
				return nil, err
			}
			contexts = append(contexts, focused)
			reasoningPath = append(reasoningPath, "Search: "+query)
		}
	} else {
		query := transformed.SearchQuery + " looking for relevant details and context"
		focused, err := m.runHop(ctx, "primary", query, question, logger)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, focused)
		reasoningPath = append(reasoningPath, "Initial search: "+query)
	}

	// 4. 后续跳: 每个子问题一跳, 总跳数不超过 MaxHops
	for i, subQuestion := range transformed.SubQuestions {
		if i >= m.cfg.MaxHops-1 {
			break
		}
		enhanced := enhanceSubQuestion(subQuestion, class)
		// 重写针对子问题而不是原问题
		focused, err := m.runHop(ctx, "follow_up", enhanced, subQuestion, logger)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, focused)
		reasoningPath = append(reasoningPath, fmt.Sprintf("Follow-up search %d: %s", i+1, enhanced))
	}

	// 5. 拼接上下文与推理路径
	finalContext := strings.Join(contexts, contextSeparator)
	reasoningTrace := strings.Join(reasoningPath, "\n")

	// 6-7. 合成最终答案; 即使全部检索降级为空也要尝试
	answer, err := m.synthesize(ctx, finalContext, enhanceQuestion(question, class), reasoningTrace)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	m.collector.ObserveForward(duration)

	if m.answerCache != nil {
		m.answerCache.Set(ctx, m.cfg.CollectionName, question, answer)
	}

	logger.Info("forward completed",
		zap.Int("hops", len(reasoningPath)),
		zap.Duration("duration", duration))

	return &Result{
		RunID:         runID,
		Answer:        answer,
		ReasoningPath: reasoningPath,
		Contexts:      contexts,
		Duration:      duration,
	}, nil
}

// runHop 执行一跳: 检索 + 针对 rewriteFor 的上下文重写.
func (m *Module) runHop(ctx context.Context, hopType, query, rewriteFor string, logger *zap.Logger) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "rag.hop",
		attribute.String("type", hopType),
		attribute.String("query", query))
	defer span.End()

	passages, err := m.retriever.Retrieve(ctx, query, m.cfg.K)
	if err != nil {
		return "", err
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	hopContext := strings.Join(texts, "\n\n")

	focused, err := m.rewriter.Rewrite(ctx, hopContext, rewriteFor)
	if err != nil {
		return "", err
	}

	m.collector.IncHop(hopType)
	logger.Debug("hop executed",
		zap.String("type", hopType),
		zap.String("query", query),
		zap.Int("passages", len(passages)))

	return focused, nil
}

// synthesize 执行最终合成调用.
func (m *Module) synthesize(ctx context.Context, finalContext, question, reasoningTrace string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "rag.synthesize")
	defer span.End()

	start := time.Now()
	pred, err := m.predictor.Predict(ctx, synthesisInstruction,
		[]llm.Field{
			{Name: "context", Value: finalContext},
			{Name: "question", Value: question},
			{Name: "reasoning_path", Value: reasoningTrace},
		},
		[]string{"answer"})
	m.collector.ObserveCompletion("synthesis", time.Since(start))
	if err != nil {
		if te, ok := err.(*types.Error); ok {
			return "", te.WithStage("synthesis")
		}
		return "", types.NewError(types.ErrCompletionFailed, "answer synthesis failed").
			WithStage("synthesis").WithCause(err)
	}

	return pred.Answer(), nil
}

// ForwardBatch 并发处理多个相互独立的问题; 每个 Forward 内部仍然严格串行.
func (m *Module) ForwardBatch(ctx context.Context, questions []string) ([]*Result, error) {
	results := make([]*Result, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for i, q := range questions {
		g.Go(func() error {
			res, err := m.Forward(gctx, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// primaryQueries 为要具体数据的问题构造主跳查询变体.
func primaryQueries(searchQuery string, class QuestionClass) []string {
	queries := []string{
		searchQuery,
		searchQuery + " specific details dates amounts",
		searchQuery + " all items complete list",
		searchQuery + " including all information",
	}
	if class.NeedsChronological {
		queries = append(queries, searchQuery+" in chronological order by date")
	}
	return queries
}

// enhanceSubQuestion 按问题类型给子问题追加检索提示.
func enhanceSubQuestion(subQuestion string, class QuestionClass) string {
	if class.NeedsSpecifics {
		enhanced := subQuestion + " including all specific details and complete information"
		if class.NeedsChronological {
			enhanced += " in chronological order"
		}
		return enhanced
	}
	return subQuestion + " looking for supporting information and context"
}

// enhanceQuestion 在合成前给原问题追加输出要求.
func enhanceQuestion(question string, class QuestionClass) string {
	if class.NeedsSpecifics {
		enhanced := question + " (Please include ALL specific details, numbers, amounts, and dates from the context in your answer. Make sure to list EVERY item mentioned"
		if class.NeedsChronological {
			enhanced += " in chronological order by date"
		}
		return enhanced + ".)"
	}
	return question + " (Please provide a comprehensive answer based on ALL information in the context)"
}
