package main

import (
	"github.com/spf13/cobra"

	"github.com/codecontext/codecontext-core/internal/version"
)

var (
	// projectIDFlag overrides project id derivation.
	projectIDFlag string

	// dataDirFlag overrides where per-project sqlite collections live.
	dataDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codecontext",
	Short: "CodeContext - hybrid code search engine",
	Long: `CodeContext indexes a codebase's code objects and documentation into a
hybrid dense+sparse vector store, then serves ranked, relationship-aware
search results over it.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("codecontext version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&projectIDFlag, "project", "", "Explicit project id (default: derived from git remote or directory name)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory holding per-project collections (default: ~/.codecontext/data)")
}
