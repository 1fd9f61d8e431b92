// Package retriever implements the five-stage search pipeline:
// query embedding, hybrid vector-store search, 1-hop graph expansion,
// type/name boosting, and a file-diversity filter. Graph expansion runs
// before boosting, so propagated neighbor scores are themselves boosted
// rather than added on afterward. Name boosting uses a simple
// exact-match/subset rule rather than substring or partial-overlap scoring.
package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/cerrors"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/embedding"
	"github.com/codecontext/codecontext-core/internal/graph"
	"github.com/codecontext/codecontext-core/internal/logging"
	"github.com/codecontext/codecontext-core/internal/state"
	"github.com/codecontext/codecontext-core/internal/tokenizer"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

// Options configures a Retriever.
type Options struct {
	DefaultLimit          int
	Graph                 graph.Options
	TypeBoosts            map[string]float64
	DiversityPreserveTopN int
	MaxChunksPerFile      int
}

// oversampleFactor widens the Stage 2 search so graph expansion and the
// Stage 5 diversity filter have enough candidates left after the limit
// truncation.
const oversampleFactor = 3

// Retriever wires the encoder, embedder, vector store and relationship
// graph together to answer the queries.
type Retriever struct {
	BM25F    *bm25f.Encoder
	Embedder embedding.Provider
	Store    vectorstore.Store
	Tokens   *tokenizer.Tokenizer
	Logger   *logging.Logger
	Opts     Options
}

// New builds a Retriever. A nil Logger is replaced with a no-op one.
func New(enc *bm25f.Encoder, embedder embedding.Provider, store vectorstore.Store, tok *tokenizer.Tokenizer, logger *logging.Logger, opts Options) *Retriever {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	return &Retriever{BM25F: enc, Embedder: embedder, Store: store, Tokens: tok, Logger: logger, Opts: opts}
}

// Hit is one ranked, hydrated result surviving every stage.
type Hit struct {
	ID         string
	Score      float64
	Payload    map[string]interface{}
	FilePath   string
	Language   string
	ObjectType string
}

// Search runs the full five-stage pipeline for query, returning up to limit
// hits. A non-positive limit falls back to Opts.DefaultLimit.
func (r *Retriever) Search(ctx context.Context, query string, limit int, filters vectorstore.Filters) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, cerrors.New(cerrors.EmptyQuery, "query must not be empty")
	}
	if limit <= 0 {
		limit = r.Opts.DefaultLimit
	}

	qDense, qSparse, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Embedding, "embed query", err)
	}

	results, err := r.Store.Search(ctx, qDense, qSparse, limit*oversampleFactor, filters, vectorstore.FusionRRF)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Search, "hybrid search", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	byID := make(map[string]vectorstore.SearchResult, len(results))
	candidates := make([]graph.Candidate, 0, len(results))
	for _, res := range results {
		byID[res.ID] = res
		candidates = append(candidates, graph.Candidate{ID: res.ID, Score: res.Score})
	}

	expanded := graph.Expand(&storeRelationshipLookup{ctx: ctx, store: r.Store, fallback: r.blobLookup(ctx)}, candidates, r.Opts.Graph)
	if err := r.hydrateExpanded(ctx, expanded, byID); err != nil {
		return nil, cerrors.Wrap(cerrors.Search, "hydrate expanded candidates", err)
	}

	queryTokens := tokenSet(r.Tokens.Tokenize(query))

	hits := make([]Hit, 0, len(expanded))
	for _, c := range expanded {
		res, ok := byID[c.ID]
		if !ok {
			continue
		}
		hit := Hit{ID: c.ID, Score: c.Score, Payload: res.Payload}
		hit.FilePath, _ = res.Payload["file_path"].(string)
		hit.Language, _ = res.Payload["language"].(string)
		hit.ObjectType, _ = payloadObjectType(res.Payload)
		hit.Score = r.boost(hit, queryTokens)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	hits = diversityFilter(hits, r.Opts.DiversityPreserveTopN, r.Opts.MaxChunksPerFile)

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) (embedding.Vector, bm25f.SparseVector, error) {
	vectors, err := r.Embedder.Embed(ctx, []string{query}, embedding.NL2CodeQuery)
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) == 0 {
		return nil, nil, cerrors.New(cerrors.Embedding, "embedder returned no vector for query")
	}
	return vectors[0], r.BM25F.EncodeQuery(query), nil
}

// hydrateExpanded fetches payloads for any candidate Expand added that
// Stage 2 did not already return.
func (r *Retriever) hydrateExpanded(ctx context.Context, candidates []graph.Candidate, byID map[string]vectorstore.SearchResult) error {
	var missing []string
	for _, c := range candidates {
		if _, ok := byID[c.ID]; !ok {
			missing = append(missing, c.ID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	points, err := r.Store.GetBatch(ctx, missing)
	if err != nil {
		return err
	}
	for _, p := range points {
		byID[p.ID] = vectorstore.SearchResult{ID: p.ID, Payload: p.Payload}
	}
	return nil
}

func payloadObjectType(payload map[string]interface{}) (string, bool) {
	if v, ok := payload["object_type"]; ok {
		if s, ok := v.(string); ok {
			return s, true
		}
		if s, ok := v.(codemodel.ObjectType); ok {
			return string(s), true
		}
	}
	if v, ok := payload["node_type"].(string); ok {
		return v, true
	}
	return "", false
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// blobLookup decodes the project's relationships_blob into a state.Lookup
// for storeRelationshipLookup's fallback path ("Result
// hydration": "fetch relationships via the vector-store payload or the
// relationships blob"). A missing IndexState or blob yields a nil Lookup,
// which storeRelationshipLookup treats as "no fallback available" rather
// than an error -- the payload path already covers the common case.
func (r *Retriever) blobLookup(ctx context.Context) *state.Lookup {
	idx, err := r.Store.GetIndexState(ctx)
	if err != nil || idx == nil {
		return nil
	}
	rels, err := state.Decode(idx.RelationshipsBlob)
	if err != nil || len(rels) == 0 {
		return nil
	}
	return state.NewLookup(rels)
}

// storeRelationshipLookup adapts vectorstore.Store to graph.RelationshipLookup
// by decoding the outgoing/incoming relationships already denormalized onto
// a point's payload, so Stage 3 never needs a second relationships store.
// When a point's payload carries no relationships (e.g. an older index), it
// falls back to the project's relationships_blob.
type storeRelationshipLookup struct {
	ctx      context.Context
	store    vectorstore.Store
	fallback *state.Lookup
}

func (l *storeRelationshipLookup) Get(id string) []codemodel.Relationship {
	p, err := l.store.Get(l.ctx, id)
	if err != nil || p == nil {
		if l.fallback != nil {
			return l.fallback.Get(id)
		}
		return nil
	}
	var rels []codemodel.Relationship
	rels = append(rels, decodeRelationshipList(p.Payload["outgoing_relationships"])...)
	rels = append(rels, decodeRelationshipList(p.Payload["incoming_relationships"])...)
	if len(rels) == 0 && l.fallback != nil {
		return l.fallback.Get(id)
	}
	return rels
}
