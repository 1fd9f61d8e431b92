package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codecontext/codecontext-core/internal/formatter"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

var (
	searchLimit      int
	searchFormat     string
	searchLanguage   string
	searchObjectType string
	searchFilePath   string
	searchExpand     string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed project",
	Long: `Run the five-stage hybrid search pipeline: query embedding, dense+sparse
vector search, one-hop graph expansion, type/name boosting, and a
file-diversity filter.

Examples:
  codecontext search "parse config file"
  codecontext search handleRequest --kinds=function --limit=10
  codecontext search handleRequest --expand=signature,snippet,relationships`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "human", "Output format (json, human)")
	searchCmd.Flags().StringVar(&searchLanguage, "language", "", "Filter by language")
	searchCmd.Flags().StringVar(&searchObjectType, "kinds", "", "Filter by object type (function, class, method, etc)")
	searchCmd.Flags().StringVar(&searchFilePath, "file", "", "Filter by file path pattern")
	searchCmd.Flags().StringVar(&searchExpand, "expand", "", "Comma-separated expanded fields (signature,snippet,content,parent,relationships,complexity,impact.direct_callers)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	logger := newLogger(searchFormat)
	repoRoot := mustGetRepoRoot()
	ctx := context.Background()
	query := args[0]

	c := mustBuildComponents(ctx, repoRoot, logger)
	defer c.store.Close()

	filters := vectorstore.Filters{
		Language:        searchLanguage,
		ObjectType:      searchObjectType,
		FilePathPattern: searchFilePath,
	}

	hits, err := c.retriever.Search(ctx, query, searchLimit, filters)
	if err != nil {
		exitWithError("Error searching", err)
	}

	expand := parseExpandKeys(searchExpand)
	records := make([]formatter.Record, 0, len(hits))
	for _, hit := range hits {
		obj := formatter.FromPayload(hit.ID, hit.Payload)
		records = append(records, formatter.BuildRecord(obj, hit.Score, expand))
	}

	output, err := formatter.Format(formatter.Results{
		Query:   query,
		Total:   len(records),
		Records: records,
	}, formatter.OutputFormat(searchFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

func parseExpandKeys(raw string) []formatter.ExpandKey {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]formatter.ExpandKey, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, formatter.ExpandKey(p))
		}
	}
	return keys
}
