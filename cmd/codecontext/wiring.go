package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/cerrors"
	"github.com/codecontext/codecontext-core/internal/config"
	"github.com/codecontext/codecontext-core/internal/docparser"
	"github.com/codecontext/codecontext-core/internal/embedding"
	"github.com/codecontext/codecontext-core/internal/graph"
	"github.com/codecontext/codecontext-core/internal/indexer"
	"github.com/codecontext/codecontext-core/internal/logging"
	"github.com/codecontext/codecontext-core/internal/parser"
	"github.com/codecontext/codecontext-core/internal/registry"
	"github.com/codecontext/codecontext-core/internal/retriever"
	"github.com/codecontext/codecontext-core/internal/tokenizer"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

// components bundles every package a command needs, wired from a loaded
// Config.
type components struct {
	cfg       *config.Config
	registry  *registry.Registry
	store     vectorstore.Store
	tokens    *tokenizer.Tokenizer
	bm25f     *bm25f.Encoder
	embedder  embedding.Provider
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	projectID string
}

// buildComponents derives the project id, opens its collection, and wires
// every stage of the indexing/retrieval pipeline against it.
func buildComponents(ctx context.Context, projectRoot string, logger *logging.Logger) (*components, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	projectID, err := registry.DeriveProjectID(ctx, projectRoot, projectIDFlag)
	if err != nil {
		return nil, fmt.Errorf("derive project id: %w", err)
	}

	dataDir := dataDirFlag
	if dataDir == "" {
		dataDir, err = defaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default data dir: %w", err)
		}
	}

	reg := registry.New(dataDir)
	if err := reg.Register(projectID, projectRoot); err != nil {
		return nil, fmt.Errorf("register project: %w", err)
	}

	store, err := vectorstore.OpenSQLiteStore(dataDir, projectID, logger)
	if err != nil {
		return nil, fmt.Errorf("open project collection: %w", err)
	}

	tok := tokenizer.New(cfg.Tokenizer.Stopwords, cfg.Tokenizer.MaxCacheSize)
	enc := bm25f.New(bm25f.Config{
		FieldWeights: cfg.BM25F.FieldWeights,
		K1:           cfg.BM25F.K1,
		B:            cfg.BM25F.B,
		AvgDL:        cfg.BM25F.AvgDL,
	}, tok)

	embedder, err := embedding.New(cfg.Embeddings.Provider, map[string]interface{}{
		"batch_size": cfg.Embeddings.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("construct embedding provider %q: %w", cfg.Embeddings.Provider, err)
	}

	ix := indexer.New(parser.NewFactory(), docparser.NewFactory(docparser.DefaultOptions()), tok, enc, embedder, store, logger, indexer.Options{
		IncludeGlobs:     cfg.Indexing.IncludeGlobs,
		ExcludeGlobs:     cfg.Indexing.ExcludeGlobs,
		MaxFileSizeBytes: cfg.Indexing.MaxFileSizeBytes,
		ParallelWorkers:  cfg.Indexing.ParallelWorkers,
		MaxRetries:       cfg.Indexing.MaxRetries,
		RetryBaseSeconds: cfg.Indexing.RetryBaseSeconds,
		RetryCapSeconds:  cfg.Indexing.RetryCapSeconds,
	})

	rt := retriever.New(enc, embedder, store, tok, logger, retriever.Options{
		DefaultLimit: cfg.Retrieval.DefaultLimit,
		Graph: graph.Options{
			Enabled:      cfg.Retrieval.EnableGraphExpansion,
			ScoreWeight:  cfg.Retrieval.GraphScoreWeight,
			PPRThreshold: cfg.Retrieval.GraphPPRThreshold,
			Weights:      graph.DefaultEdgeWeights(),
		},
		TypeBoosts:            cfg.Retrieval.TypeBoosts,
		DiversityPreserveTopN: cfg.Retrieval.DiversityPreserveTopN,
		MaxChunksPerFile:      cfg.Retrieval.MaxChunksPerFile,
	})

	return &components{
		cfg: cfg, registry: reg, store: store, tokens: tok, bm25f: enc,
		embedder: embedder, indexer: ix, retriever: rt, projectID: projectID,
	}, nil
}

// registryFor builds a standalone Registry for commands that only need
// the project manifest (list-projects, status, delete-project) without
// paying for the rest of buildComponents' pipeline wiring.
func registryFor(dataDir string) *registry.Registry {
	return registry.New(dataDir)
}

// printJSON renders v as indented JSON to stdout, exiting on encode
// failure.
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codecontext", "data"), nil
}

// mustBuildComponents wires components or exits with an error, the CLI's
// equivalent of mustGetEngine.
func mustBuildComponents(ctx context.Context, projectRoot string, logger *logging.Logger) *components {
	c, err := buildComponents(ctx, projectRoot, logger)
	if err != nil {
		exitWithError("Error initializing codecontext", err)
	}
	return c
}

// exitWithError prints prefix and err to stderr and exits with the status
// cerrors.ExitCode derives from err's Code, so a storage/embedding/indexing
// failure exits 2 and a user-facing error like EmptyQuery/ProjectNotFound/
// Configuration exits 1.
func exitWithError(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
	os.Exit(cerrors.ExitCode(err))
}

func mustGetRepoRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return wd
}

func newLogger(format string) *logging.Logger {
	lf := logging.FormatHuman
	if format == "json" {
		lf = logging.FormatJSON
	}
	return logging.New(logging.Config{Format: lf, Level: logging.LevelInfo})
}
