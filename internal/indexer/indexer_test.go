package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/docparser"
	"github.com/codecontext/codecontext-core/internal/embedding"
	"github.com/codecontext/codecontext-core/internal/parser"
	"github.com/codecontext/codecontext-core/internal/tokenizer"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalkProjectRespectsIncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "vendor/lib.go", "package lib\n")
	writeFile(t, root, "notes.md", "# notes\n")

	files, err := walkProject(walkOptions{
		Root:         root,
		IncludeGlobs: []string{"**/*.go"},
		ExcludeGlobs: []string{"vendor/**"},
	})
	require.NoError(t, err)

	var got []string
	for _, f := range files {
		got = append(got, f.RelPath)
	}
	require.Contains(t, got, "main.go")
	require.NotContains(t, got, "vendor/lib.go")
	require.NotContains(t, got, "notes.md")
}

func TestWalkProjectHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "build/\n*.log\n")
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "build/out.go", "package out\n")
	writeFile(t, root, "debug.log", "noise\n")

	files, err := walkProject(walkOptions{Root: root})
	require.NoError(t, err)

	var got []string
	for _, f := range files {
		got = append(got, f.RelPath)
	}
	require.Contains(t, got, "main.go")
	require.NotContains(t, got, "build/out.go")
	require.NotContains(t, got, "debug.log")
}

func TestWalkProjectSkipsBinaryAndOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package main\n")
	writeFile(t, root, "huge.go", "package main\n// "+string(make([]byte, 200)))
	require.NoError(t, os.WriteFile(filepath.Join(root, "binary.dat"), []byte{0x00, 0x01, 0x02, 'a', 'b'}, 0o644))

	files, err := walkProject(walkOptions{Root: root, MaxFileSizeBytes: 50})
	require.NoError(t, err)

	var got []string
	for _, f := range files {
		got = append(got, f.RelPath)
	}
	require.Contains(t, got, "small.go")
	require.NotContains(t, got, "huge.go")
	require.NotContains(t, got, "binary.dat")
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), retryOptions{MaxRetries: 3, BaseSeconds: 0.001, CapSeconds: 0.01}, func() error {
		attempts++
		if attempts < 3 {
			return context.DeadlineExceeded
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAndReturnsLastError(t *testing.T) {
	attempts := 0
	wantErr := context.DeadlineExceeded
	err := withRetry(context.Background(), retryOptions{MaxRetries: 2, BaseSeconds: 0.001, CapSeconds: 0.01}, func() error {
		attempts++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 3, attempts) // initial try + 2 retries
}

func TestWithRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, retryOptions{MaxRetries: 5, BaseSeconds: 1, CapSeconds: 2}, func() error {
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.Canceled)
}

func newTestIndexer(t *testing.T, dataDir string) *Indexer {
	t.Helper()
	tok := tokenizer.New(nil, 1000)
	enc := bm25f.New(bm25f.DefaultConfig(), tok)
	embedder := embedding.NewDeterministicProvider(64, 8)
	store, err := vectorstore.OpenSQLiteStore(dataDir, "test-project", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { store.Close() })

	return New(parser.NewFactory(), docparser.NewFactory(docparser.DefaultOptions()), tok, enc, embedder, store, nil, Options{
		ParallelWorkers:  2,
		MaxRetries:       1,
		RetryBaseSeconds: 0.001,
		RetryCapSeconds:  0.01,
	})
}

func TestFullSyncIndexesCodeAndDocumentFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/greeter.go", `package pkg

// Greet returns a greeting for name.
func Greet(name string) string {
	return "hello " + name
}
`)
	writeFile(t, root, "README.md", "# Greeter\n\nA tiny greeting library.\n")

	ix := newTestIndexer(t, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := ix.FullSync(ctx, "test-project", root)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result.FilesFailed)
	require.Equal(t, 2, result.FilesIndexed)
	require.Greater(t, result.ObjectsIndexed, 0)
	require.Greater(t, result.DocumentsIndexed, 0)

	paths, err := ix.Store.GetIndexedFilePaths(ctx)
	require.NoError(t, err)
	require.Contains(t, paths, "pkg/greeter.go")
	require.Contains(t, paths, "README.md")
}

func TestIncrementalSyncOnlyReprocessesChangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc A() {}\n")
	writeFile(t, root, "b.go", "package a\n\nfunc B() { A() }\n")

	ix := newTestIndexer(t, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := ix.FullSync(ctx, "test-project", root)
	require.NoError(t, err)

	result, err := ix.IncrementalSync(ctx, "test-project", root)
	require.NoError(t, err)
	require.Equal(t, 0, result.FilesIndexed) // nothing changed since FullSync

	writeFile(t, root, "b.go", "package a\n\nfunc B() { A(); A() }\n")
	result, err = ix.IncrementalSync(ctx, "test-project", root)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)
	require.Empty(t, result.FilesFailed)

	os.Remove(filepath.Join(root, "a.go"))
	result, err = ix.IncrementalSync(ctx, "test-project", root)
	require.NoError(t, err)

	paths, err := ix.Store.GetIndexedFilePaths(ctx)
	require.NoError(t, err)
	require.NotContains(t, paths, "a.go")
	require.Contains(t, paths, "b.go")
}

func TestUpsertByFileRecordsPerObjectChecksums(t *testing.T) {
	ix := newTestIndexer(t, t.TempDir())
	ctx := context.Background()

	units := []fileUnit{{
		relPath:  "a.go",
		checksum: "file-checksum-1",
		objects: []codemodel.CodeObject{
			{ID: "obj-1", Checksum: "content-checksum-1"},
			{ID: "obj-2", Checksum: "content-checksum-2"},
		},
	}}

	require.NoError(t, ix.upsertByFile(ctx, units, nil))

	fc, err := ix.Store.GetFileChecksum(ctx, "a.go")
	require.NoError(t, err)
	require.NotNil(t, fc)
	require.Equal(t, "file-checksum-1", fc.Checksum)
	require.Equal(t, map[string]string{
		"obj-1": "content-checksum-1",
		"obj-2": "content-checksum-2",
	}, fc.ObjectChecksums)
}

func TestLoadReusableObjectVectorsSkipsChangedObjects(t *testing.T) {
	ix := newTestIndexer(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, ix.Store.SetFileChecksum(ctx, codemodel.FileChecksum{
		FilePath: "a.go",
		Checksum: "old-file-checksum",
		ObjectChecksums: map[string]string{
			"obj-unchanged": "same-content",
			"obj-changed":   "old-content",
		},
	}))
	require.NoError(t, ix.Store.Upsert(ctx, []vectorstore.Point{
		{ID: "obj-unchanged", Kind: vectorstore.KindCodeObject, FilePath: "a.go", Dense: embedding.Vector{0.1, 0.2}, Payload: map[string]interface{}{"id": "obj-unchanged"}},
		{ID: "obj-changed", Kind: vectorstore.KindCodeObject, FilePath: "a.go", Dense: embedding.Vector{0.3, 0.4}, Payload: map[string]interface{}{"id": "obj-changed"}},
	}))

	units := []fileUnit{{
		relPath: "a.go",
		objects: []codemodel.CodeObject{
			{ID: "obj-unchanged", Checksum: "same-content"},
			{ID: "obj-changed", Checksum: "new-content"},
			{ID: "obj-new", Checksum: "brand-new"},
		},
	}}

	reuse := ix.loadReusableObjectVectors(ctx, []string{"a.go"}, units)
	require.Len(t, reuse, 1)
	require.Contains(t, reuse, "obj-unchanged")
	require.NotContains(t, reuse, "obj-changed")
	require.NotContains(t, reuse, "obj-new")
	require.Equal(t, embedding.Vector{0.1, 0.2}, reuse["obj-unchanged"].Dense)
}
