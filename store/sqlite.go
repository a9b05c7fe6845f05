package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sigrag/types"
)

// documentRow 是 SQLite 中的文档行, 向量以 JSON 存储.
type documentRow struct {
	ID         string `gorm:"primaryKey"`
	Collection string `gorm:"primaryKey;index"`
	Text       string
	Embedding  []byte
	CreatedAt  time.Time
}

// TableName 指定表名.
func (documentRow) TableName() string { return "documents" }

// SQLiteStore 是 SQLite 持久化的集合提供者.
// 相似度在内存中计算, 适用于 CLI 规模的集合; 向量索引本身不在系统范围内.
type SQLiteStore struct {
	db       *gorm.DB
	embedder Embedder
	logger   *zap.Logger
}

var _ Provider = (*SQLiteStore)(nil)
var _ Indexer = (*SQLiteStore)(nil)

// OpenSQLiteStore 打开(或创建) path 处的集合数据库.
func OpenSQLiteStore(path string, embedder Embedder, logger *zap.Logger) (*SQLiteStore, error) {
	if embedder == nil {
		embedder = NewLocalEmbedder(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to open collection database").WithCause(err)
	}

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to migrate collection schema").WithCause(err)
	}

	return &SQLiteStore{
		db:       db,
		embedder: embedder,
		logger:   logger.With(zap.String("component", "sqlite_store")),
	}, nil
}

// Lookup 查找命名集合. 没有任何文档的名称视为不存在.
func (s *SQLiteStore) Lookup(name string) (Collection, error) {
	var count int64
	if err := s.db.Model(&documentRow{}).Where("collection = ?", name).Count(&count).Error; err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to query collections").WithCause(err)
	}
	if count == 0 {
		return nil, types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", name)
	}
	return &sqliteCollection{name: name, store: s}, nil
}

// List 返回全部集合名称.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&documentRow{}).
		Distinct("collection").Order("collection").Pluck("collection", &names).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to list collections").WithCause(err)
	}
	return names, nil
}

// Index 把文档嵌入并写入命名集合. 同 ID 文档覆盖.
func (s *SQLiteStore) Index(ctx context.Context, collection string, docs []Document) error {
	if collection == "" {
		return types.NewError(types.ErrInvalidConfig, "collection_name must be provided")
	}
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return types.NewError(types.ErrStoreUnavailable, "failed to embed documents").WithCause(err)
	}

	rows := make([]documentRow, len(docs))
	for i, d := range docs {
		raw, err := json.Marshal(embeddings[i])
		if err != nil {
			return types.NewError(types.ErrDocumentInvalid, "failed to encode embedding").WithCause(err)
		}
		rows[i] = documentRow{
			ID:         d.ID,
			Collection: collection,
			Text:       d.Text,
			Embedding:  raw,
			CreatedAt:  time.Now(),
		}
	}

	if err := s.db.WithContext(ctx).Save(&rows).Error; err != nil {
		return types.NewError(types.ErrStoreUnavailable, "failed to store documents").WithCause(err)
	}

	s.logger.Info("documents indexed",
		zap.String("collection", collection),
		zap.Int("count", len(docs)))

	return nil
}

type sqliteCollection struct {
	name  string
	store *SQLiteStore
}

// Name 返回集合名称.
func (c *sqliteCollection) Name() string { return c.name }

// Similar 加载集合文档并在内存中按余弦相似度排序.
func (c *sqliteCollection) Similar(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	embeddings, err := c.store.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to embed query").WithCause(err)
	}
	queryVec := embeddings[0]

	var rows []documentRow
	err = c.store.db.WithContext(ctx).
		Where("collection = ?", c.name).Find(&rows).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to load collection documents").WithCause(err)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		var vec []float64
		if err := json.Unmarshal(row.Embedding, &vec); err != nil {
			c.store.logger.Warn("skipping document with unreadable embedding",
				zap.String("id", row.ID), zap.Error(err))
			continue
		}
		results = append(results, SearchResult{
			DocumentID: row.ID,
			Text:       row.Text,
			Score:      cosineSimilarity(queryVec, vec),
		})
	}

	sortByScore(results)
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}
