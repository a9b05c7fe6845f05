// Package sigrag provides a top-level convenience entry point for creating
// multi-hop RAG pipelines with minimal boilerplate.
//
// Usage:
//
//	import "sigrag"
//
//	m, err := sigrag.New("docs", sigrag.WithOpenAI("gpt-4o-mini"))
//	m, err := sigrag.New("docs", sigrag.WithProvider(myProvider), sigrag.WithSQLite("sigrag.db"))
//
// This is a thin wrapper around [quick.New]; both produce identical results.
// Use this package when you prefer the shorter import path.
package sigrag

import (
	"sigrag/quick"
	"sigrag/rag"
)

// Option configures the pipeline created by [New].
type Option = quick.Option

// New creates a [rag.Module] bound to the named collection.
// At minimum, a completion provider must be specified via [WithOpenAI] or
// [WithProvider], and a store via [WithSQLite] or [WithStore].
func New(collection string, opts ...Option) (*rag.Module, error) {
	return quick.New(collection, opts...)
}

// Re-export option shortcuts so callers never need to import quick/.

// WithProvider sets a pre-built completion provider.
var WithProvider = quick.WithProvider

// WithOpenAI creates an OpenAI-compatible provider. API key from OPENAI_API_KEY env.
var WithOpenAI = quick.WithOpenAI

// WithAPIKey overrides the API key for provider shortcuts.
var WithAPIKey = quick.WithAPIKey

// WithBaseURL overrides the API endpoint for provider shortcuts.
var WithBaseURL = quick.WithBaseURL

// WithStore sets a pre-built collection store.
var WithStore = quick.WithStore

// WithSQLite uses a SQLite collection store at the given path.
var WithSQLite = quick.WithSQLite

// WithK sets the number of passages retrieved per hop.
var WithK = quick.WithK

// WithMaxHops caps the number of retrieval hops per question.
var WithMaxHops = quick.WithMaxHops

// WithLogger sets a custom zap logger.
var WithLogger = quick.WithLogger
