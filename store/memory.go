package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"sigrag/types"
)

// MemoryStore 是内存集合提供者, 用于测试和小规模应用.
type MemoryStore struct {
	collections map[string]*memoryCollection
	data        map[string][]memoryDocument
	embedder    Embedder
	mu          sync.RWMutex
	logger      *zap.Logger
}

type memoryCollection struct {
	name  string
	store *MemoryStore
}

type memoryDocument struct {
	doc       Document
	embedding []float64
}

// NewMemoryStore 创建内存集合提供者.
func NewMemoryStore(embedder Embedder, logger *zap.Logger) *MemoryStore {
	if embedder == nil {
		embedder = NewLocalEmbedder(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		data:        make(map[string][]memoryDocument),
		embedder:    embedder,
		logger:      logger.With(zap.String("component", "memory_store")),
	}
}

var _ Provider = (*MemoryStore)(nil)
var _ Indexer = (*MemoryStore)(nil)

// Lookup 查找命名集合.
func (s *MemoryStore) Lookup(name string) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", name)
	}
	return c, nil
}

// List 返回全部集合名称, 按字典序.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Index 把文档嵌入并加入命名集合, 集合不存在时创建.
func (s *MemoryStore) Index(ctx context.Context, collection string, docs []Document) error {
	if collection == "" {
		return types.NewError(types.ErrInvalidConfig, "collection_name must be provided")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return types.NewError(types.ErrStoreUnavailable, "failed to embed documents").WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = &memoryCollection{name: collection, store: s}
	}
	for i, d := range docs {
		s.data[collection] = append(s.data[collection], memoryDocument{doc: d, embedding: embeddings[i]})
	}

	s.logger.Info("documents indexed",
		zap.String("collection", collection),
		zap.Int("count", len(docs)),
		zap.Int("total", len(s.data[collection])))

	return nil
}

// Name 返回集合名称.
func (c *memoryCollection) Name() string { return c.name }

// Similar 返回与查询最相似的至多 limit 个结果.
func (c *memoryCollection) Similar(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	embeddings, err := c.store.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to embed query").WithCause(err)
	}
	queryVec := embeddings[0]

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	docs := c.store.data[c.name]
	results := make([]SearchResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, SearchResult{
			DocumentID: d.doc.ID,
			Text:       d.doc.Text,
			Score:      cosineSimilarity(queryVec, d.embedding),
		})
	}

	sortByScore(results)
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}
