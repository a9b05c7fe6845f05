package quick

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigrag/store"
	"sigrag/testutil/mocks"
)

func TestNew_RequiresProvider(t *testing.T) {
	_, err := New("docs", WithStore(mocks.NewStaticProvider()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion provider is required")
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New("docs", WithProvider(mocks.NewMockCompletionProvider()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection store is required")
}

func TestNew_RequiresAPIKeyForShortcut(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New("docs", WithOpenAI("gpt-4o-mini"), WithStore(mocks.NewStaticProvider()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNew_ForwardWithMocks(t *testing.T) {
	sp := mocks.NewStaticProvider().Add(&mocks.StaticCollection{
		CollectionName: "docs",
		Results: []store.SearchResult{
			{DocumentID: "d1", Text: "The deadline moved to June.", Score: 0.8},
		},
	})
	provider := mocks.NewMockCompletionProvider().AnswerResponse("Moved to June.")

	m, err := New("docs", WithProvider(provider), WithStore(sp), WithK(1), WithMaxHops(1))
	require.NoError(t, err)

	result, err := m.Forward(context.Background(), "When is the deadline?")
	require.NoError(t, err)
	assert.Equal(t, "Moved to June.", result.Answer)
}

func TestNew_SQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick.db")
	s, err := store.OpenSQLiteStore(path, store.NewLocalEmbedder(0), nil)
	require.NoError(t, err)
	require.NoError(t, s.Index(context.Background(), "docs", []store.Document{
		{ID: "d1", Text: "hello world"},
	}))

	m, err := New("docs", WithProvider(mocks.NewMockCompletionProvider()), WithSQLite(path))
	require.NoError(t, err)
	require.NotNil(t, m)
}
