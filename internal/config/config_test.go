package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := Default()
	require.Equal(t, 1.2, cfg.BM25F.K1)
	require.Equal(t, 0.75, cfg.BM25F.B)
	require.Equal(t, 100.0, cfg.BM25F.AvgDL)
	require.Equal(t, 60, cfg.VectorStore.RRFK)
	require.Equal(t, 7.0, cfg.VectorStore.PrefetchDenseRatio)
	require.Equal(t, 3.0, cfg.VectorStore.PrefetchSparseRatio)
	require.Equal(t, 1, cfg.Retrieval.DiversityPreserveTopN)
	require.Equal(t, 2, cfg.Retrieval.MaxChunksPerFile)
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, Default().BM25F.K1, cfg.BM25F.K1)
}

func TestProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "[retrieval]\ndefaultLimit = 25\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codecontext.toml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Retrieval.DefaultLimit)
}

func TestEnvOverridesProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := "[retrieval]\ndefaultLimit = 25\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codecontext.toml"), []byte(content), 0o644))

	t.Setenv("CODECONTEXT_RETRIEVAL__DEFAULTLIMIT", "99")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 99, cfg.Retrieval.DefaultLimit)
}
