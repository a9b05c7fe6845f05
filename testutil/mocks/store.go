// =============================================================================
// 集合存储模拟实现
// =============================================================================
// StaticProvider 持有固定的命名集合; StaticCollection 返回预置结果或注入错误.
// =============================================================================
package mocks

import (
	"context"
	"sort"
	"sync"

	"sigrag/store"
	"sigrag/types"
)

// StaticProvider 是 store.Provider 的固定映射模拟.
type StaticProvider struct {
	Collections map[string]store.Collection
}

// NewStaticProvider 创建空的 StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{Collections: make(map[string]store.Collection)}
}

// Add 注册一个集合并返回 provider 本身.
func (p *StaticProvider) Add(c store.Collection) *StaticProvider {
	p.Collections[c.Name()] = c
	return p
}

// Lookup 查找命名集合.
func (p *StaticProvider) Lookup(name string) (store.Collection, error) {
	c, ok := p.Collections[name]
	if !ok {
		return nil, types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", name)
	}
	return c, nil
}

// List 返回全部集合名称.
func (p *StaticProvider) List(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(p.Collections))
	for name := range p.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// StaticCollection 返回预置结果的集合模拟, 支持错误注入与调用计数.
type StaticCollection struct {
	mu sync.Mutex

	CollectionName string
	Results        []store.SearchResult
	Err            error

	calls   int
	queries []string
}

// Name 返回集合名称.
func (c *StaticCollection) Name() string { return c.CollectionName }

// Similar 返回预置结果(截断到 limit)或注入的错误.
func (c *StaticCollection) Similar(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	c.queries = append(c.queries, query)

	if c.Err != nil {
		return nil, c.Err
	}

	results := c.Results
	if limit < len(results) {
		results = results[:limit]
	}
	out := make([]store.SearchResult, len(results))
	copy(out, results)
	return out, nil
}

// Calls 返回 Similar 的调用次数.
func (c *StaticCollection) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Queries 返回收到的全部查询.
func (c *StaticCollection) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.queries))
	copy(out, c.queries)
	return out
}
