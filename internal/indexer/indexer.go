// Package indexer implements the indexing pipeline: discover
// files, route them to internal/parser and internal/docparser, resolve
// relationships across the batch, embed and BM25F-encode, upsert into the
// vector store, and persist IndexState.
//
// The worker pool runs one golang.org/x/sync/errgroup goroutine per file and
// bounds how many parse at once with a buffered channel sized to
// Opts.ParallelWorkers. Per-file failures are recorded rather than returned,
// so one bad file never cancels the rest of the batch.
package indexer

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/cerrors"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/docparser"
	"github.com/codecontext/codecontext-core/internal/embedding"
	"github.com/codecontext/codecontext-core/internal/identity"
	"github.com/codecontext/codecontext-core/internal/logging"
	"github.com/codecontext/codecontext-core/internal/parser"
	"github.com/codecontext/codecontext-core/internal/relationship"
	"github.com/codecontext/codecontext-core/internal/state"
	"github.com/codecontext/codecontext-core/internal/tokenizer"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

// Options configures an Indexer run.
type Options struct {
	IncludeGlobs     []string
	ExcludeGlobs     []string
	MaxFileSizeBytes int64
	ParallelWorkers  int
	MaxRetries       int
	RetryBaseSeconds float64
	RetryCapSeconds  float64
}

// Indexer wires the parser, chunker, encoder, embedder and store together
// into the full/incremental sync pipelines.
type Indexer struct {
	Parsers  *parser.Factory
	Docs     *docparser.Factory
	Tokens   *tokenizer.Tokenizer
	BM25F    *bm25f.Encoder
	Embedder embedding.Provider
	Store    vectorstore.Store
	Logger   *logging.Logger
	Opts     Options
}

// New builds an Indexer. A nil Logger is replaced with a no-op one.
func New(parsers *parser.Factory, docs *docparser.Factory, tok *tokenizer.Tokenizer, enc *bm25f.Encoder, embedder embedding.Provider, store vectorstore.Store, logger *logging.Logger, opts Options) *Indexer {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.ParallelWorkers <= 0 {
		opts.ParallelWorkers = 1
	}
	return &Indexer{Parsers: parsers, Docs: docs, Tokens: tok, BM25F: enc, Embedder: embedder, Store: store, Logger: logger, Opts: opts}
}

// Result summarizes one indexing run.
type Result struct {
	ProjectID         string
	FilesIndexed      int
	FilesSkipped      int
	FilesFailed       []string
	ObjectsIndexed    int
	DocumentsIndexed  int
	RelationshipCount int
	Languages         []string
	Duration          time.Duration
}

// fileUnit is one file's extraction output, produced by parseFile and
// consumed by the relationship and embedding stages.
type fileUnit struct {
	relPath   string
	language  string
	checksum  string
	objects   []codemodel.CodeObject
	documents []codemodel.DocumentNode
	calls     []relationship.CallSite
	refs      []relationship.ReferenceSite
	inherits  []relationship.InheritanceSite
}

// FullSync runs full-sync pipeline: walk, parse, resolve
// relationships, embed/encode/score, upsert, persist IndexState.
func (ix *Indexer) FullSync(ctx context.Context, projectID, projectRoot string) (*Result, error) {
	start := time.Now()

	if err := ix.Store.Initialize(ctx); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "initialize vector store", err)
	}

	files, err := walkProject(walkOptions{
		Root:             projectRoot,
		IncludeGlobs:     ix.Opts.IncludeGlobs,
		ExcludeGlobs:     ix.Opts.ExcludeGlobs,
		MaxFileSizeBytes: ix.Opts.MaxFileSizeBytes,
	})
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Indexing, "walk project tree", err)
	}

	units, failed := ix.parseFiles(ctx, files)

	result, err := ix.indexUnits(ctx, projectID, projectRoot, units)
	if err != nil {
		return nil, err
	}
	result.FilesFailed = append(result.FilesFailed, failed...)
	result.FilesSkipped = len(files) - len(units) - len(failed)
	result.Duration = time.Since(start)
	return result, nil
}

// parseFiles runs parser/docparser extraction over files with a worker
// pool bounded by Opts.ParallelWorkers, so files are parsed concurrently.
// Files no parser or chunker supports are skipped without being counted as
// failed.
func (ix *Indexer) parseFiles(ctx context.Context, files []discoveredFile) ([]fileUnit, []string) {
	sem := make(chan struct{}, ix.Opts.ParallelWorkers)
	var mu sync.Mutex
	var units []fileUnit
	var failed []string

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		f := f
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			defer func() { <-sem }()

			if !ix.Parsers.SupportsPath(f.RelPath) && !ix.Docs.SupportsPath(f.RelPath) {
				return nil // unsupported extension: skipped, not failed
			}

			unit, ok := ix.parseFile(gctx, f)
			mu.Lock()
			if ok {
				units = append(units, unit)
			} else {
				failed = append(failed, f.RelPath)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-file errors are captured in failed, never aborts the batch

	sort.Slice(units, func(i, j int) bool { return units[i].relPath < units[j].relPath })
	sort.Strings(failed)
	return units, failed
}

// parseFile detects the file's language by extension and routes it to the
// code parser or the document/config chunker accordingly.
func (ix *Indexer) parseFile(ctx context.Context, f discoveredFile) (fileUnit, bool) {
	unit := fileUnit{relPath: f.RelPath, checksum: f.Checksum}

	source, err := readFile(f.Path)
	if err != nil {
		ix.Logger.Warn("read failed", logging.Fields{"file": f.RelPath, "error": err.Error()})
		return unit, false
	}

	if p, ok := ix.Parsers.For(f.RelPath); ok {
		var res *parser.Result
		retryErr := withRetry(ctx, retryOptions{MaxRetries: ix.Opts.MaxRetries, BaseSeconds: ix.Opts.RetryBaseSeconds, CapSeconds: ix.Opts.RetryCapSeconds}, func() error {
			var parseErr error
			res, parseErr = p.Parse(ctx, f.RelPath, source)
			return parseErr
		})
		if retryErr != nil {
			ix.Logger.Warn("parse failed", logging.Fields{"file": f.RelPath, "error": retryErr.Error()})
			return unit, false
		}
		for i := range res.Objects {
			res.Objects[i].Checksum = identity.ObjectContentChecksum(res.Objects[i].Content, res.Objects[i].Signature)
		}
		unit.objects = res.Objects
		unit.calls = res.Calls
		unit.refs = res.References
		unit.inherits = res.Inheritance
		unit.language = string(p.Language())
		return unit, true
	}

	if c, ok := ix.Docs.For(f.RelPath); ok {
		nodes, err := c.Chunk(f.RelPath, source)
		if err != nil {
			ix.Logger.Warn("chunk failed", logging.Fields{"file": f.RelPath, "error": err.Error()})
			return unit, false
		}
		unit.documents = nodes
		unit.language = "document"
		return unit, true
	}

	return unit, false // unsupported extension, silently skipped rather than a failure
}

// indexUnits runs the shared second half of full and incremental sync:
// cross-file relationship resolution, embedding/encoding/scoring, upsert,
// and IndexState persistence.
func (ix *Indexer) indexUnits(ctx context.Context, projectID, projectRoot string, units []fileUnit) (*Result, error) {
	allObjects, allDocuments, allCalls, allRefs, allInherits := flattenUnits(units)

	idx := relationship.NewIndex(allObjects)
	relationships := relationship.ExtractContains(idx, allObjects)
	relationships = append(relationships, relationship.ExtractCrossFile(idx, allCalls, allRefs, allInherits)...)
	attachDenormalizedRelationships(allObjects, relationships)

	points, err := ix.buildPoints(ctx, allObjects, allDocuments, nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Embedding, "embed and encode batch", err)
	}

	if err := ix.upsertByFile(ctx, units, points); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "upsert points", err)
	}

	blob, err := state.Encode(relationships)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "encode relationships blob", err)
	}

	languages := distinctLanguages(units)
	indexState := codemodel.IndexState{
		ProjectID:         projectID,
		ProjectPath:       projectRoot,
		TotalFiles:        len(units),
		TotalObjects:      len(allObjects),
		TotalDocuments:    len(allDocuments),
		LastIndexed:       time.Now().Unix(),
		Status:            codemodel.StatusReady,
		Languages:         languages,
		RelationshipsBlob: blob,
	}
	if err := ix.Store.SetIndexState(ctx, indexState); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "persist index state", err)
	}

	return &Result{
		ProjectID:         projectID,
		FilesIndexed:      len(units),
		ObjectsIndexed:    len(allObjects),
		DocumentsIndexed:  len(allDocuments),
		RelationshipCount: len(relationships),
		Languages:         languages,
	}, nil
}

func flattenUnits(units []fileUnit) ([]codemodel.CodeObject, []codemodel.DocumentNode, []relationship.CallSite, []relationship.ReferenceSite, []relationship.InheritanceSite) {
	var objects []codemodel.CodeObject
	var documents []codemodel.DocumentNode
	var calls []relationship.CallSite
	var refs []relationship.ReferenceSite
	var inherits []relationship.InheritanceSite
	for _, u := range units {
		objects = append(objects, u.objects...)
		documents = append(documents, u.documents...)
		calls = append(calls, u.calls...)
		refs = append(refs, u.refs...)
		inherits = append(inherits, u.inherits...)
	}
	return objects, documents, calls, refs, inherits
}

// attachDenormalizedRelationships populates each object's
// Outgoing/IncomingRelationships in place so the vector-store payload can
// render relationships without a second query.
func attachDenormalizedRelationships(objects []codemodel.CodeObject, rels []codemodel.Relationship) {
	byID := make(map[string]*codemodel.CodeObject, len(objects))
	for i := range objects {
		byID[objects[i].ID] = &objects[i]
	}
	for _, rel := range rels {
		if src, ok := byID[rel.SourceID]; ok {
			src.OutgoingRelationships = append(src.OutgoingRelationships, rel)
		}
		if tgt, ok := byID[rel.TargetID]; ok && rel.TargetID != "" {
			if reverse, known := codemodel.Reverse(rel.RelationType); known {
				mirrored := rel
				mirrored.RelationType = reverse
				tgt.IncomingRelationships = append(tgt.IncomingRelationships, mirrored)
			}
		}
	}
}

func distinctLanguages(units []fileUnit) []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range units {
		if u.language == "" || u.language == "document" || seen[u.language] {
			continue
		}
		seen[u.language] = true
		out = append(out, u.language)
	}
	sort.Strings(out)
	return out
}

