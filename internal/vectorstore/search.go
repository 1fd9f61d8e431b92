package vectorstore

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/embedding"
)

// rrfK is the RRF rank-damping constant.
const rrfK = 60

// DensePrefetchRatio and SparsePrefetchRatio are pinned
// prefetch multipliers: independently fetch limit*7.0 dense candidates and
// limit*3.0 sparse candidates before fusing.
const (
	DensePrefetchRatio  = 7.0
	SparsePrefetchRatio = 3.0
)

// Search implements Store. Only FusionRRF is implemented by this reference
// store; FusionDBSF/FusionWeighted are accepted by the Fusion type but this
// sqlite-backed reference has no distribution statistics to support DBSF
// and no configured per-vector weights to support weighted fusion, so both
// fall back to RRF rather than
// silently producing an unweighted/unnormalized score.
func (s *SQLiteStore) Search(ctx context.Context, qDense embedding.Vector, qSparse bm25f.SparseVector, limit int, filters Filters, fusion Fusion) ([]SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	prefetchDense := ceilRatio(limit, DensePrefetchRatio)
	prefetchSparse := ceilRatio(limit, SparsePrefetchRatio)

	candidates, err := s.filteredPoints(ctx, filters)
	if err != nil {
		return nil, err
	}

	denseRanked := rankByDense(candidates, qDense, prefetchDense)
	sparseRanked := rankBySparse(candidates, qSparse, prefetchSparse)

	fused := fuseRRF(denseRanked, sparseRanked)

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})
	if len(fused) > limit {
		fused = fused[:limit]
	}

	out := make([]SearchResult, len(fused))
	byID := make(map[string]*Point, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}
	for i, f := range fused {
		out[i] = SearchResult{ID: f.ID, Score: f.Score, Payload: byID[f.ID].Payload}
	}
	return out, nil
}

func ceilRatio(limit int, ratio float64) int {
	return int(math.Ceil(float64(limit) * ratio))
}

func (s *SQLiteStore) filteredPoints(ctx context.Context, filters Filters) ([]Point, error) {
	query := `SELECT id, kind, dense, sparse, payload, file_path, language, object_type FROM points WHERE 1=1`
	var args []interface{}

	if filters.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filters.Kind))
	}
	if filters.Language != "" {
		query += ` AND language = ?`
		args = append(args, filters.Language)
	}
	if filters.ObjectType != "" {
		query += ` AND object_type = ?`
		args = append(args, filters.ObjectType)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var id, kind, filePath, language, objectType string
		var denseBlob, sparseJSON, payloadJSON []byte
		if err := rows.Scan(&id, &kind, &denseBlob, &sparseJSON, &payloadJSON, &filePath, &language, &objectType); err != nil {
			return nil, err
		}
		if filters.FilePathPattern != "" && !strings.Contains(filePath, filters.FilePathPattern) {
			continue
		}
		dense, err := decodeDense(denseBlob)
		if err != nil {
			return nil, err
		}
		sparse, err := decodeSparse(sparseJSON)
		if err != nil {
			return nil, err
		}
		var payload map[string]interface{}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &payload); err != nil {
				return nil, err
			}
		}
		out = append(out, Point{
			ID: id, Kind: Kind(kind), Dense: dense, Sparse: sparse, Payload: payload,
			FilePath: filePath, Language: language, ObjectType: objectType,
		})
	}
	return out, rows.Err()
}

type ranked struct {
	id   string
	rank int // 1-based
}

// rankByDense scores every candidate by dot product against qDense (both
// are expected to be unit-normalized by the embedding provider, so this
// approximates cosine similarity) and returns the top prefetch ids ranked
// 1..n.
func rankByDense(candidates []Point, qDense embedding.Vector, prefetch int) []ranked {
	type scored struct {
		id    string
		score float64
	}
	var scoredList []scored
	for _, c := range candidates {
		scoredList = append(scoredList, scored{id: c.ID, score: dotProduct(c.Dense, qDense)})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })
	if len(scoredList) > prefetch {
		scoredList = scoredList[:prefetch]
	}
	out := make([]ranked, len(scoredList))
	for i, sc := range scoredList {
		out[i] = ranked{id: sc.id, rank: i + 1}
	}
	return out
}

// rankBySparse scores every candidate by sparse inner product against
// qSparse and returns the top prefetch ids ranked 1..n.
func rankBySparse(candidates []Point, qSparse bm25f.SparseVector, prefetch int) []ranked {
	type scored struct {
		id    string
		score float64
	}
	var scoredList []scored
	for _, c := range candidates {
		scoredList = append(scoredList, scored{id: c.ID, score: sparseInnerProduct(c.Sparse, qSparse)})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })
	if len(scoredList) > prefetch {
		scoredList = scoredList[:prefetch]
	}
	out := make([]ranked, len(scoredList))
	for i, sc := range scoredList {
		out[i] = ranked{id: sc.id, rank: i + 1}
	}
	return out
}

func dotProduct(a, b embedding.Vector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func sparseInnerProduct(a, b bm25f.SparseVector) float64 {
	// Iterate the smaller map for efficiency.
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for k, v := range a {
		sum += v * b[k]
	}
	return sum
}

// fuseRRF combines two ranked lists into one by reciprocal-rank-fusion
// score: score(id) = sum over lists containing id of
// 1/(k+rank).
func fuseRRF(lists ...[]ranked) []SearchResult {
	scores := make(map[string]float64)
	for _, list := range lists {
		for _, r := range list {
			scores[r.id] += 1.0 / float64(rrfK+r.rank)
		}
	}
	out := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		out = append(out, SearchResult{ID: id, Score: score})
	}
	return out
}
