package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteProjectYes bool

var deleteProjectCmd = &cobra.Command{
	Use:   "delete-project <project-id>",
	Short: "Drop a project's collection and remove it from the registry",
	Long: `Deletion is all-or-nothing: the collection file (and its WAL/SHM
siblings) is removed before the registry entry, so a crash mid-delete
leaves the project re-discoverable rather than silently orphaned.`,
	Args: cobra.ExactArgs(1),
	Run:  runDeleteProject,
}

func init() {
	deleteProjectCmd.Flags().BoolVar(&deleteProjectYes, "yes", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteProjectCmd)
}

func runDeleteProject(cmd *cobra.Command, args []string) {
	projectID := args[0]

	if !deleteProjectYes && !confirmDelete(projectID) {
		fmt.Println("Aborted.")
		return
	}

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

	if err := reg.Delete(projectID); err != nil {
		exitWithError("Error deleting project", err)
	}
	fmt.Printf("Deleted project %q\n", projectID)
}

func confirmDelete(projectID string) bool {
	fmt.Printf("Delete project %q and all its indexed data? [y/N] ", projectID)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
