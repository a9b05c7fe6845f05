// =============================================================================
// Package quick — One-Line Pipeline Construction
// =============================================================================
// Provides a convenience entry point for creating a multi-hop RAG pipeline
// with minimal boilerplate. Delegates to rag.New internally.
//
// Usage:
//
//	import "sigrag/quick"
//
//	m, err := quick.New("docs", quick.WithOpenAI("gpt-4o-mini"))
//	m, err := quick.New("docs", quick.WithProvider(myProvider), quick.WithSQLite("sigrag.db"))
//
// =============================================================================
package quick

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"sigrag/llm"
	"sigrag/rag"
	"sigrag/store"
)

// Option configures the pipeline created by New.
type Option func(*options)

type options struct {
	provider llm.CompletionProvider
	store    store.Provider
	logger   *zap.Logger
	k        int
	maxHops  int

	// Provider shortcut fields — used when provider is nil.
	model   string
	baseURL string
	apiKey  string

	// Store shortcut fields — used when store is nil.
	sqlitePath string
}

// WithProvider sets a pre-built completion provider.
func WithProvider(p llm.CompletionProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithOpenAI creates an OpenAI-compatible completion provider using the given
// model. API key is read from OPENAI_API_KEY environment variable.
func WithOpenAI(model string) Option {
	return func(o *options) {
		o.model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// WithAPIKey overrides the API key for WithOpenAI.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL overrides the API endpoint for WithOpenAI.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithStore sets a pre-built collection store.
func WithStore(s store.Provider) Option {
	return func(o *options) { o.store = s }
}

// WithSQLite uses a SQLite collection store at the given path with the
// deterministic local embedder.
func WithSQLite(path string) Option {
	return func(o *options) { o.sqlitePath = path }
}

// WithK sets the number of passages retrieved per hop.
func WithK(k int) Option {
	return func(o *options) { o.k = k }
}

// WithMaxHops caps the number of retrieval hops per question.
func WithMaxHops(n int) Option {
	return func(o *options) { o.maxHops = n }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a rag.Module bound to the named collection with minimal
// configuration.
func New(collection string, opts ...Option) (*rag.Module, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	// Resolve completion provider.
	p := o.provider
	if p == nil {
		if o.model == "" {
			return nil, fmt.Errorf("completion provider is required: use WithProvider or WithOpenAI")
		}
		if o.apiKey == "" {
			return nil, fmt.Errorf("API key is required: set OPENAI_API_KEY or use WithAPIKey")
		}
		p = llm.NewOpenAIProvider(llm.OpenAIConfig{
			BaseURL: o.baseURL,
			APIKey:  o.apiKey,
			Model:   o.model,
		}, o.logger)
	}

	// Resolve collection store.
	s := o.store
	if s == nil {
		if o.sqlitePath == "" {
			return nil, fmt.Errorf("collection store is required: use WithStore or WithSQLite")
		}
		var err error
		s, err = store.OpenSQLiteStore(o.sqlitePath, store.NewLocalEmbedder(0), o.logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
	}

	cfg := rag.DefaultConfig(collection)
	if o.k > 0 {
		cfg.K = o.k
	}
	if o.maxHops > 0 {
		cfg.MaxHops = o.maxHops
	}

	return rag.New(cfg, rag.Deps{
		Store:       s,
		Completions: p,
		Logger:      o.logger,
	})
}
