package store

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"sigrag/types"
)

// Embedder 把文本批量映射为向量. 查询与文档使用同一个 Embedder,
// 否则相似度没有意义.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
	Dimensions() int
}

// ====== 本地确定性嵌入（离线与测试）======

// LocalEmbedder 用词袋哈希生成确定性向量, 不依赖外部服务.
// 检索质量远不如真实嵌入模型, 但对测试和离线冒烟足够.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder 创建本地嵌入器. dims <= 0 时使用 256.
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &LocalEmbedder{dims: dims}
}

// Dimensions 返回向量维度.
func (e *LocalEmbedder) Dimensions() int { return e.dims }

// Embed 生成词袋哈希向量, L2 归一化.
func (e *LocalEmbedder) Embed(_ context.Context, inputs []string) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, text := range inputs {
		vec := make([]float64, e.dims)
		for _, term := range strings.Fields(strings.ToLower(text)) {
			term = strings.Trim(term, ".,;:!?\"'()[]")
			if term == "" {
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(term))
			vec[h.Sum32()%uint32(e.dims)] += 1.0
		}

		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		out[i] = vec
	}
	return out, nil
}

// ====== OpenAI 兼容嵌入 ======

// OpenAIEmbedderConfig 配置 OpenAI 兼容的嵌入服务.
type OpenAIEmbedderConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	APIKey     string        `yaml:"api_key" json:"api_key"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// OpenAIEmbedder 通过 OpenAI 兼容的 /v1/embeddings 接口生成嵌入.
type OpenAIEmbedder struct {
	cfg    OpenAIEmbedderConfig
	client *http.Client
}

// NewOpenAIEmbedder 创建 OpenAI 兼容嵌入器.
func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) *OpenAIEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Dimensions 返回向量维度.
func (e *OpenAIEmbedder) Dimensions() int { return e.cfg.Dimensions }

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed 调用嵌入接口.
func (e *OpenAIEmbedder) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	data, err := json.Marshal(embedRequest{Input: inputs, Model: e.cfg.Model})
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to marshal embedding request").WithCause(err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to create embedding request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "embedding request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to read embedding response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewErrorf(types.ErrStoreUnavailable, "embedding returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "failed to decode embedding response").WithCause(err)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, types.NewErrorf(types.ErrStoreUnavailable,
			"embedding returned %d vectors for %d inputs", len(parsed.Data), len(inputs))
	}

	out := make([][]float64, len(inputs))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, types.NewErrorf(types.ErrStoreUnavailable, "embedding returned invalid index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
