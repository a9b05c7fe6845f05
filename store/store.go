// Package store 提供按名称查找的相似度检索集合:
// Provider 管理命名集合, Collection 按语义相似度返回排好序的文本片段.
// 提供内存实现(测试/小规模)和 SQLite 持久化实现(CLI 本地索引).
package store

import (
	"context"
	"math"
	"sort"
)

// Document 是集合中的一个文档.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult 是一次相似度查询的单个结果.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"` // 越大越相关
}

// Collection 是一个可按相似度查询的命名集合. 管线对集合只读.
type Collection interface {
	// Name 返回集合名称
	Name() string

	// Similar 返回与查询最相似的至多 limit 个结果, 按分数降序
	Similar(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Provider 按名称查找集合. 未知名称返回 COLLECTION_NOT_FOUND 错误.
type Provider interface {
	// Lookup 查找命名集合
	Lookup(name string) (Collection, error)

	// List 返回全部集合名称
	List(ctx context.Context) ([]string, error)
}

// Indexer is an optional interface for Provider implementations that support
// adding documents. Use type assertion to check support:
//
//	if ix, ok := provider.(Indexer); ok { ix.Index(ctx, "docs", docs) }
type Indexer interface {
	Index(ctx context.Context, collection string, docs []Document) error
}

// cosineSimilarity 计算两个向量的余弦相似度.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortByScore 按分数降序排序.
func sortByScore(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
