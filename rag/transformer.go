package rag

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"sigrag/internal/metrics"
	"sigrag/llm"
	"sigrag/types"
)

// transformInstruction 固定的查询分解指令: question -> search_query, sub_questions
const transformInstruction = `Transform the question into one focused search query plus follow-up sub-questions for multi-hop retrieval.
- search_query: a single keyword-dense query capturing the core information need
- sub_questions: up to 3 short follow-up questions covering aspects the primary query may miss, separated by commas`

// TransformedQuestion 是查询转换的结果.
type TransformedQuestion struct {
	SearchQuery  string   `json:"search_query"`
	SubQuestions []string `json:"sub_questions"`
}

// Transformer 把用户问题分解为主检索查询和后续跳的子问题.
type Transformer struct {
	predictor *llm.Predictor
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewTransformer 创建查询转换器.
func NewTransformer(predictor *llm.Predictor, collector *metrics.Collector, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		predictor: predictor,
		collector: collector,
		logger:    logger.With(zap.String("component", "query_transformer")),
	}
}

// Transform 执行单次补全并规范化输出.
func (t *Transformer) Transform(ctx context.Context, question string) (*TransformedQuestion, error) {
	start := time.Now()
	pred, err := t.predictor.Predict(ctx, transformInstruction,
		[]llm.Field{{Name: "question", Value: question}},
		[]string{"search_query", "sub_questions"})
	if t.collector != nil {
		t.collector.ObserveCompletion("transform", time.Since(start))
	}
	if err != nil {
		if te, ok := err.(*types.Error); ok {
			return nil, te.WithStage("transform")
		}
		return nil, types.NewError(types.ErrCompletionFailed, "query transformation failed").
			WithStage("transform").WithCause(err)
	}

	searchQuery, _ := pred.Get("search_query")
	searchQuery = strings.TrimSpace(searchQuery)
	if searchQuery == "" {
		// 模型没给出查询时退回原问题
		t.logger.Warn("empty search_query in transform response, falling back to question")
		searchQuery = question
	}

	rawSubs, _ := pred.Get("sub_questions")
	subQuestions, err := NormalizeSubQuestions(rawSubs)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("question transformed",
		zap.String("question", question),
		zap.String("search_query", searchQuery),
		zap.Int("sub_questions", len(subQuestions)))

	return &TransformedQuestion{
		SearchQuery:  searchQuery,
		SubQuestions: subQuestions,
	}, nil
}

var listItemPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[\.\)])\s*`)

// NormalizeSubQuestions 规范化 sub_questions 字段.
// 模型有时返回真正的列表(JSON 数组或逐行条目), 有时返回逗号拼接的扁平字符串;
// 下游一律要求序列, 所以这里强制规范化:
//   - JSON 数组逐项取字符串
//   - 逐行条目去掉列表前缀
//   - 扁平字符串按逗号切分并去除空白
//
// JSON 对象等其他形态是契约违例, 返回 MALFORMED_RESPONSE.
func NormalizeSubQuestions(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return nil, nil
	}

	switch {
	case strings.HasPrefix(raw, "["):
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, types.NewError(types.ErrMalformedResponse,
				"sub_questions is not a list of strings").WithStage("transform").WithField("sub_questions").WithCause(err)
		}
		return trimNonEmpty(items), nil

	case strings.HasPrefix(raw, "{"):
		return nil, types.NewError(types.ErrMalformedResponse,
			"sub_questions must be a list or comma-separated string").WithStage("transform").WithField("sub_questions")

	case strings.Contains(raw, "\n"):
		var items []string
		for _, line := range strings.Split(raw, "\n") {
			items = append(items, listItemPrefix.ReplaceAllString(line, ""))
		}
		return trimNonEmpty(items), nil

	default:
		return trimNonEmpty(strings.Split(raw, ",")), nil
	}
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
