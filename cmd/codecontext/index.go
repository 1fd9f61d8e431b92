package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codecontext/codecontext-core/internal/logging"
	"github.com/codecontext/codecontext-core/internal/watcher"
)

var (
	indexFull  bool
	indexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the current project",
	Long: `Walk the project tree, parse every supported file, resolve
relationships across the batch, embed and BM25F-encode, and upsert into the
project's vector store.

By default, index runs incrementally against whatever was indexed before:
unchanged files are skipped by checksum, added/modified files are
re-parsed, and files that disappeared are removed from the store. Pass
--full to force a clean re-walk of every file.`,
	Run: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "Force a full re-index instead of incremental sync")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "After indexing, keep watching the project for changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	logger := newLogger("human")
	repoRoot := mustGetRepoRoot()
	ctx := context.Background()

	c := mustBuildComponents(ctx, repoRoot, logger)
	defer c.store.Close()

	result, err := syncOnce(ctx, c, repoRoot)
	if err != nil {
		exitWithError("Error indexing project", err)
	}
	printSyncResult(result)

	if indexWatch {
		runWatchLoop(ctx, c, logger, repoRoot)
	}
}

// syncResult is the shape both indexer.Result and incremental sync reports
// collapse to, so one printSyncResult serves --full and incremental runs
// and the watcher's re-index callback alike.
type syncResult struct {
	filesIndexed, filesSkipped, objectsIndexed, documentsIndexed, relationships int
	languages                                                                  []string
}

func syncOnce(ctx context.Context, c *components, repoRoot string) (*syncResult, error) {
	first, err := c.store.GetIndexState(ctx)
	if err != nil {
		return nil, err
	}

	var filesIndexed, filesSkipped, objectsIndexed, documentsIndexed, relCount int
	var languages []string

	if indexFull || first == nil {
		res, err := c.indexer.FullSync(ctx, c.projectID, repoRoot)
		if err != nil {
			return nil, err
		}
		filesIndexed, filesSkipped = res.FilesIndexed, res.FilesSkipped
		objectsIndexed, documentsIndexed, relCount = res.ObjectsIndexed, res.DocumentsIndexed, res.RelationshipCount
		languages = res.Languages
	} else {
		res, err := c.indexer.IncrementalSync(ctx, c.projectID, repoRoot)
		if err != nil {
			return nil, err
		}
		filesIndexed, filesSkipped = res.FilesIndexed, res.FilesSkipped
		objectsIndexed, documentsIndexed, relCount = res.ObjectsIndexed, res.DocumentsIndexed, res.RelationshipCount
		languages = res.Languages
	}

	return &syncResult{
		filesIndexed: filesIndexed, filesSkipped: filesSkipped,
		objectsIndexed: objectsIndexed, documentsIndexed: documentsIndexed,
		relationships: relCount, languages: languages,
	}, nil
}

// runWatchLoop keeps codecontext alive after the initial index, re-running
// an incremental sync every time the watcher debounces a batch of changes,
// until Ctrl+C.
func runWatchLoop(ctx context.Context, c *components, logger *logging.Logger, repoRoot string) {
	w := watcher.New(watcher.DefaultConfig(), logger, func(root string, paths []string) {
		fmt.Printf("\nChanges detected (%d paths), re-syncing...\n", len(paths))
		res, err := c.indexer.IncrementalSync(ctx, c.projectID, root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error re-syncing: %v\n", err)
			return
		}
		printSyncResult(&syncResult{
			filesIndexed: res.FilesIndexed, filesSkipped: res.FilesSkipped,
			objectsIndexed: res.ObjectsIndexed, documentsIndexed: res.DocumentsIndexed,
			relationships: res.RelationshipCount, languages: res.Languages,
		})
		fmt.Println("Watching for changes...")
	})

	if err := w.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting watcher: %v\n", err)
		os.Exit(1)
	}
	if err := w.WatchProject(repoRoot); err != nil {
		fmt.Fprintf(os.Stderr, "Error watching project: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Watching for changes... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nStopping watch...")
	_ = w.Stop()
}

func printSyncResult(r *syncResult) {
	fmt.Printf("Indexed %d files (%d skipped), %d objects, %d documents, %d relationships\n",
		r.filesIndexed, r.filesSkipped, r.objectsIndexed, r.documentsIndexed, r.relationships)
	if len(r.languages) > 0 {
		fmt.Printf("Languages: %v\n", r.languages)
	}
}
