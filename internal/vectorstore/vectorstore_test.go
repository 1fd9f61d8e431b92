package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/embedding"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(t.TempDir(), "demo-project", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCollectionNaming(t *testing.T) {
	require.Equal(t, "codecontext_demo-project", CollectionName("demo-project"))
}

func TestUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := Point{
		ID:       "obj-1",
		Kind:     KindCodeObject,
		Dense:    embedding.Vector{0.1, 0.2, 0.3},
		Sparse:   bm25f.SparseVector{42: 1.5, 7: 0.25},
		Payload:  map[string]interface{}{"name": "Charge"},
		FilePath: "billing/charge.go",
		Language: "go",
	}
	require.NoError(t, store.Upsert(ctx, []Point{p}))

	got, err := store.Get(ctx, "obj-1")
	require.NoError(t, err)
	require.Equal(t, p.FilePath, got.FilePath)
	require.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, toFloat64(got.Dense), 1e-6)
	require.InDelta(t, 1.5, got.Sparse[42], 1e-9)
	require.Equal(t, "Charge", got.Payload["name"])
}

func toFloat64(v embedding.Vector) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func TestDeleteByFileRemovesAllPointsForFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Point{
		{ID: "a", FilePath: "x.go", Kind: KindCodeObject},
		{ID: "b", FilePath: "x.go", Kind: KindCodeObject},
		{ID: "c", FilePath: "y.go", Kind: KindCodeObject},
	}))

	n, err := store.DeleteByFile(ctx, "x.go")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	paths, err := store.GetIndexedFilePaths(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"y.go": {}}, paths)
}

func TestSearchFusesRankAcrossDenseAndSparse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// "a" ranks best on dense, worst on sparse; "b" the reverse; "c" is
	// second on both -- with k=60, a and b each fuse to 1/61+1/63 and c to
	// 2/62, just below them.
	require.NoError(t, store.Upsert(ctx, []Point{
		{ID: "a", Dense: embedding.Vector{1, 0}, Sparse: bm25f.SparseVector{1: 0.1}, Kind: KindCodeObject},
		{ID: "b", Dense: embedding.Vector{0, 1}, Sparse: bm25f.SparseVector{1: 10}, Kind: KindCodeObject},
		{ID: "c", Dense: embedding.Vector{0.7, 0.7}, Sparse: bm25f.SparseVector{1: 5}, Kind: KindCodeObject},
	}))

	results, err := store.Search(ctx, embedding.Vector{1, 0}, bm25f.SparseVector{1: 1.0}, 3, Filters{}, FusionRRF)
	require.NoError(t, err)
	require.Len(t, results, 3)
	// every result earned at least one reciprocal-rank contribution
	for _, r := range results {
		require.Greater(t, r.Score, 0.0)
	}
}

func TestSearchRespectsLanguageFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Point{
		{ID: "go-obj", Dense: embedding.Vector{1, 0}, Language: "go", Kind: KindCodeObject},
		{ID: "py-obj", Dense: embedding.Vector{1, 0}, Language: "python", Kind: KindCodeObject},
	}))

	results, err := store.Search(ctx, embedding.Vector{1, 0}, bm25f.SparseVector{}, 10, Filters{Language: "python"}, FusionRRF)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "py-obj", results[0].ID)
}

func TestIndexStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetFileChecksum(ctx, codemodel.FileChecksum{FilePath: "a.go", Checksum: "abc", LastIndexed: 100}))

	state := codemodel.IndexState{
		ProjectID:    "demo-project",
		ProjectPath:  "/repo",
		TotalFiles:   1,
		TotalObjects: 3,
		Status:       codemodel.StatusReady,
		Languages:    []string{"go"},
	}
	require.NoError(t, store.SetIndexState(ctx, state))

	got, err := store.GetIndexState(ctx)
	require.NoError(t, err)
	require.Equal(t, "demo-project", got.ProjectID)
	require.Equal(t, 3, got.TotalObjects)
	require.Contains(t, got.FileChecksums, "a.go")
	require.Equal(t, "abc", got.FileChecksums["a.go"].Checksum)
}

func TestKVState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetState(ctx, "cursor", []byte("42")))
	v, err := store.GetState(ctx, "cursor")
	require.NoError(t, err)
	require.Equal(t, []byte("42"), v)

	require.NoError(t, store.DeleteState(ctx, "cursor"))
	v, err = store.GetState(ctx, "cursor")
	require.NoError(t, err)
	require.Nil(t, v)
}
