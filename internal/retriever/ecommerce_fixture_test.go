package retriever

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
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

// ecommerceFixtureRoot resolves testdata/fixtures/ecommerce relative to this
// file rather than the working directory, so `go test ./...` from any
// directory finds the same seed fixture these scenarios run against.
func ecommerceFixtureRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "testdata", "fixtures", "ecommerce")
}

// indexEcommerceFixture runs a clean full sync over the seed fixture and
// returns a Retriever wired against it, the shared setup every seed
// scenario below builds on.
func indexEcommerceFixture(t *testing.T) (*Retriever, vectorstore.Store, context.Context) {
	t.Helper()
	root := ecommerceFixtureRoot(t)

	dataDir := t.TempDir()
	tok := tokenizer.New(nil, 1000)
	enc := bm25f.New(bm25f.DefaultConfig(), tok)
	embedder := embedding.NewDeterministicProvider(64, 8)

	store, err := vectorstore.OpenSQLiteStore(dataDir, "ecommerce-fixture", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ix := indexer.New(parser.NewFactory(), docparser.NewFactory(docparser.DefaultOptions()), tok, enc, embedder, store, nil, indexer.Options{
		ParallelWorkers: 4, MaxRetries: 1, RetryBaseSeconds: 0.001, RetryCapSeconds: 0.01,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	_, err = ix.FullSync(ctx, "ecommerce-fixture", root)
	require.NoError(t, err)

	r := New(enc, embedder, store, tok, nil, Options{
		DefaultLimit: 10,
		Graph:        graph.DefaultOptions(),
		TypeBoosts: map[string]float64{
			"function": 0.10,
			"class":    0.12,
			"method":   0.10,
		},
		DiversityPreserveTopN: 3,
		MaxChunksPerFile:      3,
	})
	return r, store, ctx
}

func filePathsOf(hits []Hit) []string {
	paths := make([]string, len(hits))
	for i, h := range hits {
		paths[i] = h.FilePath
	}
	return paths
}

// copyDir copies the fixture tree into a scratch root so the incremental
// scenario can mutate a file without touching testdata.
func copyDir(t *testing.T, src, dst string) error {
	t.Helper()
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}

func appendToFile(t *testing.T, path, suffix string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(suffix)
	require.NoError(t, err)
}

func containsSuffix(paths []string, basename string) bool {
	for _, p := range paths {
		if filepath.Base(p) == basename {
			return true
		}
	}
	return false
}

// TestEcommerceFixtureOrderProcessingFlow is seed scenario 1: "order
// processing flow" must surface both the business doc and OrderService.
func TestEcommerceFixtureOrderProcessingFlow(t *testing.T) {
	r, _, ctx := indexEcommerceFixture(t)

	hits, err := r.Search(ctx, "order processing flow", 3, vectorstore.Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	paths := filePathsOf(hits)
	require.True(t, containsSuffix(paths, "order-flow.md"), "expected order-flow.md among top-3, got %v", paths)
	require.True(t, containsSuffix(paths, "OrderService.java"), "expected OrderService.java among top-3, got %v", paths)
}

// TestEcommerceFixturePaymentGatewayIntegration is seed scenario 2.
func TestEcommerceFixturePaymentGatewayIntegration(t *testing.T) {
	r, _, ctx := indexEcommerceFixture(t)

	hits, err := r.Search(ctx, "payment gateway integration", 3, vectorstore.Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	paths := filePathsOf(hits)
	matched := 0
	for _, p := range paths {
		if filepath.Base(p) == "payment_gateway.py" || filepath.Base(p) == "payment-gateway.md" {
			matched++
		}
	}
	require.GreaterOrEqual(t, matched, 2, "expected at least 2/3 precision, got paths %v", paths)
	require.Contains(t, []string{"payment_gateway.py", "payment-gateway.md"}, filepath.Base(paths[0]))
}

// TestEcommerceFixtureCustomerTierDiscountSystem is seed scenario 3.
func TestEcommerceFixtureCustomerTierDiscountSystem(t *testing.T) {
	r, _, ctx := indexEcommerceFixture(t)

	hits, err := r.Search(ctx, "customer tier discount system", 5, vectorstore.Filters{})
	require.NoError(t, err)

	paths := filePathsOf(hits)
	require.True(t, containsSuffix(paths, "CustomerTier.kt"), "expected CustomerTier.kt among top-5, got %v", paths)
	require.True(t, containsSuffix(paths, "CustomerService.kt"), "expected CustomerService.kt among top-5, got %v", paths)
}

// TestEcommerceFixtureShippingCostCalculation is seed scenario 4.
func TestEcommerceFixtureShippingCostCalculation(t *testing.T) {
	r, _, ctx := indexEcommerceFixture(t)

	hits, err := r.Search(ctx, "shipping cost calculation logic", 3, vectorstore.Filters{})
	require.NoError(t, err)

	paths := filePathsOf(hits)
	require.True(t, containsSuffix(paths, "calculateShipping.js"), "expected calculateShipping.js among top-3, got %v", paths)
}

// TestEcommerceFixtureRestApiEndpoints is seed scenario 5.
func TestEcommerceFixtureRestApiEndpoints(t *testing.T) {
	r, _, ctx := indexEcommerceFixture(t)

	hits, err := r.Search(ctx, "REST API endpoints and design", 5, vectorstore.Filters{})
	require.NoError(t, err)

	paths := filePathsOf(hits)
	require.True(t, containsSuffix(paths, "api-design.md"), "expected api-design.md among top-5, got %v", paths)
	require.True(t, containsSuffix(paths, "OrderController.java"), "expected OrderController.java among top-5, got %v", paths)
}

// TestEcommerceFixtureEmptyQueryRejected is seed scenario 6.
func TestEcommerceFixtureEmptyQueryRejected(t *testing.T) {
	r, _, ctx := indexEcommerceFixture(t)

	_, err := r.Search(ctx, "", 5, vectorstore.Filters{})
	require.Error(t, err)
}

// TestEcommerceFixtureProjectIsolation is seed scenario 7: a query
// whose best match exists only in a second project never surfaces it from
// the first project's search.
func TestEcommerceFixtureProjectIsolation(t *testing.T) {
	root := ecommerceFixtureRoot(t)

	dataDir := t.TempDir()
	tok := tokenizer.New(nil, 1000)
	enc := bm25f.New(bm25f.DefaultConfig(), tok)
	embedder := embedding.NewDeterministicProvider(64, 8)

	storeA, err := vectorstore.OpenSQLiteStore(dataDir, "project-a", nil)
	require.NoError(t, err)
	t.Cleanup(func() { storeA.Close() })
	storeB, err := vectorstore.OpenSQLiteStore(dataDir, "project-b", nil)
	require.NoError(t, err)
	t.Cleanup(func() { storeB.Close() })

	ixA := indexer.New(parser.NewFactory(), docparser.NewFactory(docparser.DefaultOptions()), tok, enc, embedder, storeA, nil, indexer.Options{
		ParallelWorkers: 2, MaxRetries: 1, RetryBaseSeconds: 0.001, RetryCapSeconds: 0.01,
	})
	ixB := indexer.New(parser.NewFactory(), docparser.NewFactory(docparser.DefaultOptions()), tok, enc, embedder, storeB, nil, indexer.Options{
		ParallelWorkers: 2, MaxRetries: 1, RetryBaseSeconds: 0.001, RetryCapSeconds: 0.01,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = ixA.FullSync(ctx, "project-a", filepath.Join(root, "services", "payment-service"))
	require.NoError(t, err)
	_, err = ixB.FullSync(ctx, "project-b", filepath.Join(root, "services", "customer-service"))
	require.NoError(t, err)

	rA := newTestRetriever(t, storeA)
	hits, err := rA.Search(ctx, "customer tier discount", 10, vectorstore.Filters{})
	require.NoError(t, err)
	for _, h := range hits {
		require.NotEqual(t, "CustomerTier.kt", filepath.Base(h.FilePath))
	}
}

// TestEcommerceFixtureIncrementalReplacesOnlyChangedFile is seed
// scenario 8: modifying one file's contents and re-syncing incrementally
// replaces exactly that file's points while leaving unchanged files'
// checksums and ids alone.
func TestEcommerceFixtureIncrementalReplacesOnlyChangedFile(t *testing.T) {
	srcRoot := ecommerceFixtureRoot(t)
	workRoot := t.TempDir()
	require.NoError(t, copyDir(t, srcRoot, workRoot))

	dataDir := t.TempDir()
	tok := tokenizer.New(nil, 1000)
	enc := bm25f.New(bm25f.DefaultConfig(), tok)
	embedder := embedding.NewDeterministicProvider(64, 8)

	store, err := vectorstore.OpenSQLiteStore(dataDir, "ecommerce-incremental", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ix := indexer.New(parser.NewFactory(), docparser.NewFactory(docparser.DefaultOptions()), tok, enc, embedder, store, nil, indexer.Options{
		ParallelWorkers: 4, MaxRetries: 1, RetryBaseSeconds: 0.001, RetryCapSeconds: 0.01,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = ix.FullSync(ctx, "ecommerce-incremental", workRoot)
	require.NoError(t, err)

	before, err := store.GetIndexState(ctx)
	require.NoError(t, err)
	require.NotNil(t, before)
	checksumsBefore := before.FileChecksums

	changedRel := filepath.Join("services", "shipping-service", "src", "calculateShipping.js")
	changedAbs := filepath.Join(workRoot, changedRel)
	appendToFile(t, changedAbs, "\n// recalculated per updated carrier contract\n")

	res, err := ix.IncrementalSync(ctx, "ecommerce-incremental", workRoot)
	require.NoError(t, err)
	require.Equal(t, 1, res.FilesIndexed, "exactly the changed file should be re-parsed")

	after, err := store.GetIndexState(ctx)
	require.NoError(t, err)
	require.NotNil(t, after)

	for rel, beforeChecksum := range checksumsBefore {
		if rel == changedRel {
			continue
		}
		afterChecksum, ok := after.FileChecksums[rel]
		require.True(t, ok, "unchanged file %q should still be checksummed", rel)
		require.Equal(t, beforeChecksum.Checksum, afterChecksum.Checksum, "unchanged file %q must keep its checksum", rel)
	}
	require.NotEqual(t, checksumsBefore[changedRel].Checksum, after.FileChecksums[changedRel].Checksum)
}
