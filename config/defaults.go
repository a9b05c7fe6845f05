// =============================================================================
// 📦 sigrag 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LLM:   DefaultLLMConfig(),
		Store: DefaultStoreConfig(),
		RAG:   DefaultRAGConfig(),
		Cache: DefaultCacheConfig(),
		Log:   DefaultLogConfig(),
	}
}

// DefaultLLMConfig 返回默认补全服务配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:     "https://api.openai.com",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   4096,
		Timeout:     60 * time.Second,
	}
}

// DefaultStoreConfig 返回默认存储配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Driver: "sqlite",
		Path:   "sigrag.db",
		Embedder: EmbedderConfig{
			Provider:   "local",
			Dimensions: 256,
			Model:      "text-embedding-3-small",
			BaseURL:    "https://api.openai.com",
		},
	}
}

// DefaultRAGConfig 返回默认管线配置
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		K:                3,
		MaxHops:          2,
		MaxContextTokens: 3000,
	}
}

// DefaultCacheConfig 返回默认缓存配置(默认关闭)
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: false,
		Addr:    "localhost:6379",
		TTL:     15 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stderr"},
	}
}
