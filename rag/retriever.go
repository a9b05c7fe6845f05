package rag

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"sigrag/internal/metrics"
	"sigrag/store"
	"sigrag/types"
)

// Passage 是一次检索的单个结果片段.
type Passage struct {
	Text       string  `json:"text"`
	Collection string  `json:"collection"`
	Score      float64 `json:"score"` // 越大越相关
}

// Retriever 包装一个命名集合的相似度检索.
// 无状态, 不做重试; 存储侧故障降级为空结果, 由上层继续执行.
type Retriever struct {
	collection store.Collection
	name       string
	k          int
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewRetriever 创建检索器. 集合在此时解析, 未知集合立即失败.
func NewRetriever(provider store.Provider, collectionName string, k int, collector *metrics.Collector, logger *zap.Logger) (*Retriever, error) {
	if collectionName == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "collection_name must be provided")
	}
	if k <= 0 {
		k = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collection, err := provider.Lookup(collectionName)
	if err != nil {
		return nil, err
	}

	return &Retriever{
		collection: collection,
		name:       collectionName,
		k:          k,
		collector:  collector,
		logger:     logger.With(zap.String("component", "retriever"), zap.String("collection", collectionName)),
	}, nil
}

// Collection 返回绑定的集合名称.
func (r *Retriever) Collection() string { return r.name }

// K 返回每跳的检索条数.
func (r *Retriever) K() int { return r.k }

// Retrieve 返回与查询最相似的至多 k 个片段, 按分数降序.
// 空查询是调用方缺陷, 立即报错; 存储侧失败记录日志并返回空结果.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidQuery, "query cannot be empty").WithStage("retrieval")
	}
	if k <= 0 {
		k = r.k
	}

	results, err := r.collection.Similar(ctx, query, k)
	if err != nil {
		// 检索故障降级: 管线带着空片段继续合成
		r.logger.Warn("retrieval failed, continuing with empty passages",
			zap.String("query", query),
			zap.Error(err))
		if r.collector != nil {
			r.collector.IncRetrievalFailure()
		}
		return []Passage{}, nil
	}

	passages := make([]Passage, 0, len(results))
	for _, res := range results {
		// 缺失文本的结果不可用, 丢弃而不是中断
		if strings.TrimSpace(res.Text) == "" {
			r.logger.Debug("dropping result without text", zap.String("document_id", res.DocumentID))
			continue
		}
		passages = append(passages, Passage{
			Text:       res.Text,
			Collection: r.name,
			Score:      res.Score,
		})
	}

	if r.collector != nil {
		r.collector.AddPassages(len(passages))
	}

	r.logger.Debug("passages retrieved",
		zap.String("query", query),
		zap.Int("count", len(passages)))

	return passages, nil
}
