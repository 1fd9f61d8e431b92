package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var listProjectsFormat string

var listProjectsCmd = &cobra.Command{
	Use:   "list-projects",
	Short: "List every project registered under the data directory",
	Run:   runListProjects,
}

func init() {
	listProjectsCmd.Flags().StringVar(&listProjectsFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(listProjectsCmd)
}

func runListProjects(cmd *cobra.Command, args []string) {
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

	entries, err := reg.List()
	if err != nil {
		exitWithError("Error listing projects", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ProjectID < entries[j].ProjectID })

	if listProjectsFormat == "json" {
		printJSON(entries)
		return
	}

	if len(entries) == 0 {
		fmt.Println("No projects registered.")
		return
	}
	fmt.Printf("%-30s %s\n", "PROJECT ID", "PATH")
	for _, e := range entries {
		fmt.Printf("%-30s %s\n", e.ProjectID, e.Path)
	}
}
