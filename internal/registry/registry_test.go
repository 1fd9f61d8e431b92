package registry

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

func TestNormalizeLowercasesAndCollapsesSeparators(t *testing.T) {
	require.Equal(t, "my-cool-repo", Normalize("My_Cool!!Repo"))
	require.Equal(t, "abc", Normalize("--abc--"))
	require.Len(t, Normalize(string(make([]byte, 200))), 0) // all-zero bytes collapse to nothing
}

func TestDeriveProjectIDFallsBackToDirectoryName(t *testing.T) {
	root := t.TempDir()
	id, err := DeriveProjectID(context.Background(), root, "")
	require.NoError(t, err)
	require.Equal(t, Normalize(filepath.Base(root)), id)
}

func TestDeriveProjectIDPrefersExplicitFlag(t *testing.T) {
	root := t.TempDir()
	id, err := DeriveProjectID(context.Background(), root, "My Explicit Name")
	require.NoError(t, err)
	require.Equal(t, "my-explicit-name", id)
}

func TestDeriveProjectIDUsesGitRemoteWhenPresent(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
		require.NoError(t, cmd.Run())
	}
	run("init", "-q")
	run("remote", "add", "origin", "https://github.com/acme/widgets.git")

	id, err := DeriveProjectID(context.Background(), root, "")
	require.NoError(t, err)
	require.Equal(t, "widgets", id)
}

func TestRegistryRegisterListStatusDelete(t *testing.T) {
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	r := New(dataDir)

	projectPath := t.TempDir()
	require.NoError(t, r.Register("acme-widgets", projectPath))

	entries, err := r.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "acme-widgets", entries[0].ProjectID)

	store, err := vectorstore.OpenSQLiteStore(dataDir, "acme-widgets", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	require.NoError(t, store.Close())

	status, err := r.Status(context.Background(), "acme-widgets")
	require.NoError(t, err)
	require.Equal(t, "acme-widgets", status.ProjectID)
	require.Nil(t, status.IndexState) // never synced

	require.NoError(t, r.Delete("acme-widgets"))

	entries, err = r.List()
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = r.Status(context.Background(), "acme-widgets")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dataDir, vectorstore.CollectionName("acme-widgets")+".db"))
	require.True(t, os.IsNotExist(statErr))
}
