package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/docparser"
	"github.com/codecontext/codecontext-core/internal/embedding"
	"github.com/codecontext/codecontext-core/internal/graph"
	"github.com/codecontext/codecontext-core/internal/indexer"
	"github.com/codecontext/codecontext-core/internal/parser"
	"github.com/codecontext/codecontext-core/internal/tokenizer"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

func TestNameBoostForExactAndSubsetAndNone(t *testing.T) {
	require.Equal(t, nameBoostExact, nameBoostFor(tokenSet([]string{"greet"}), tokenSet([]string{"greet"})))
	require.Equal(t, nameBoostSubset, nameBoostFor(tokenSet([]string{"greet", "user"}), tokenSet([]string{"greet"})))
	require.Equal(t, 0.0, nameBoostFor(tokenSet([]string{"greet"}), tokenSet([]string{"other"})))
	require.Equal(t, 0.0, nameBoostFor(tokenSet([]string{"greet"}), tokenSet(nil)))
}

func TestDiversityFilterCapsPerFileExceptPreservedTop(t *testing.T) {
	hits := []Hit{
		{ID: "a", FilePath: "x.go", Score: 5},
		{ID: "b", FilePath: "x.go", Score: 4},
		{ID: "c", FilePath: "x.go", Score: 3},
		{ID: "d", FilePath: "y.go", Score: 2},
	}
	out := diversityFilter(hits, 1, 2)

	var ids []string
	for _, h := range out {
		ids = append(ids, h.ID)
	}
	require.Contains(t, ids, "a") // preserved unconditionally
	require.Contains(t, ids, "b") // second x.go slot
	require.NotContains(t, ids, "c") // third x.go slot exceeds cap of 2
	require.Contains(t, ids, "d")
}

func newTestRetriever(t *testing.T, store vectorstore.Store) *Retriever {
	t.Helper()
	tok := tokenizer.New(nil, 1000)
	enc := bm25f.New(bm25f.DefaultConfig(), tok)
	embedder := embedding.NewDeterministicProvider(64, 8)

	return New(enc, embedder, store, tok, nil, Options{
		DefaultLimit: 10,
		Graph:        graph.DefaultOptions(),
		TypeBoosts: map[string]float64{
			"function": 0.10,
			"class":    0.12,
		},
		DiversityPreserveTopN: 1,
		MaxChunksPerFile:      2,
	})
}

func TestSearchReturnsHydratedHitsForIndexedProject(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(`package pkg

// Greet returns a greeting for name.
func Greet(name string) string {
	return "hello " + name
}
`), 0o644))

	dataDir := t.TempDir()
	tok := tokenizer.New(nil, 1000)
	enc := bm25f.New(bm25f.DefaultConfig(), tok)
	embedder := embedding.NewDeterministicProvider(64, 8)
	store, err := vectorstore.OpenSQLiteStore(dataDir, "test-project", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ix := indexer.New(parser.NewFactory(), docparser.NewFactory(docparser.DefaultOptions()), tok, enc, embedder, store, nil, indexer.Options{
		ParallelWorkers: 2, MaxRetries: 1, RetryBaseSeconds: 0.001, RetryCapSeconds: 0.01,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = ix.FullSync(ctx, "test-project", root)
	require.NoError(t, err)

	r := newTestRetriever(t, store)
	hits, err := r.Search(ctx, "Greet", 5, vectorstore.Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.NotEmpty(t, hits[0].Payload)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	dataDir := t.TempDir()
	store, err := vectorstore.OpenSQLiteStore(dataDir, "test-project", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Initialize(context.Background()))

	r := newTestRetriever(t, store)
	_, err = r.Search(context.Background(), "   ", 5, vectorstore.Filters{})
	require.Error(t, err)
}
