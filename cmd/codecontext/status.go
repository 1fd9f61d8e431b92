package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codecontext/codecontext-core/internal/registry"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show a registered project's registry entry and index state",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	projectID := args[0]
	dataDir := dataDirFlag
	if dataDir == "" {
		var err error
		dataDir, err = defaultDataDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving data dir: %v\n", err)
			os.Exit(1)
		}
	}
	reg := registryFor(dataDir)

	st, err := reg.Status(context.Background(), projectID)
	if err != nil {
		exitWithError("Error fetching status", err)
	}

	if statusFormat == "json" {
		printJSON(st)
		return
	}

	printStatusHuman(st)
}

func printStatusHuman(st *registry.Status) {
	fmt.Printf("Project: %s\n", st.ProjectID)
	fmt.Printf("Path: %s\n", st.Path)
	fmt.Printf("Registered: %s\n", st.RegisteredAt.Format(time.RFC3339))
	fmt.Println()

	if st.IndexState == nil {
		fmt.Println("Index state: never synced")
		return
	}
	idx := st.IndexState
	fmt.Printf("Index state: %s\n", idx.Status)
	fmt.Printf("  Files: %d\n", idx.TotalFiles)
	fmt.Printf("  Objects: %d\n", idx.TotalObjects)
	fmt.Printf("  Documents: %d\n", idx.TotalDocuments)
	fmt.Printf("  Languages: %v\n", idx.Languages)
	if idx.LastIndexed > 0 {
		fmt.Printf("  Last indexed: %s\n", time.Unix(idx.LastIndexed, 0).Format(time.RFC3339))
	}
}
