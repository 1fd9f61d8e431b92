// Package graph implements a 1-hop personalized-PageRank-style expansion
// over the relationship graph: a deterministic single-hop propagation
// driven by a per-relation-type edge-weight table, rather than iterative
// power-iteration PPR. Neighbors already present in the result set are
// skipped; each neighbor keeps the max contribution it receives.
package graph

import (
	"sort"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// RelationshipLookup is the subset of relationship.Store's API Expand needs.
// Kept as an interface so callers can inject a test double without pulling
// in the full store.
type RelationshipLookup interface {
	Get(id string) []codemodel.Relationship
}

// EdgeWeights maps a relation type to its propagation weight w(R).
// Unlisted types fall back to DefaultWeight.
type EdgeWeights map[codemodel.RelationType]float64

// DefaultWeight is w(R) for any relation type not present in EdgeWeights:
// the default per-type weight, 1.0, including CALLS/CALLED_BY.
const DefaultWeight = 1.0

// DefaultEdgeWeights returns its named weights. Only REFERENCES is
// called out as lower than the 1.0 default; CONTAINS/CONTAINED_BY and
// CALLS/CALLED_BY are explicitly pinned at 1.0 (i.e. equal to the default,
// listed anyway in the scheme for clarity). REFERENCES/REFERENCED_BY carry
// a lower 0.6 weight, ranking plain references below calls and containment.
func DefaultEdgeWeights() EdgeWeights {
	return EdgeWeights{
		codemodel.RelationContains:      1.0,
		codemodel.RelationContainedBy:   1.0,
		codemodel.RelationCalls:         1.0,
		codemodel.RelationCalledBy:      1.0,
		codemodel.RelationReferences:    0.6,
		codemodel.RelationReferencedBy:  0.6,
	}
}

func (w EdgeWeights) weight(rt codemodel.RelationType) float64 {
	if v, ok := w[rt]; ok {
		return v
	}
	return DefaultWeight
}

// Options configures Expand.
type Options struct {
	// Enabled toggles the whole stage; Expand is a no-op pass-through when
	// false. On by default.
	Enabled bool

	// ScoreWeight is alpha in s_n += s_c * alpha * w(R). Default 0.3.
	ScoreWeight float64

	// PPRThreshold discards expansion candidates whose score, normalized to
	// [0, 1] across this call's candidates, falls below it. Default 0.4.
	PPRThreshold float64

	Weights EdgeWeights
}

// DefaultOptions returns the graph-expansion stage's defaults.
func DefaultOptions() Options {
	return Options{
		Enabled:      true,
		ScoreWeight:  0.3,
		PPRThreshold: 0.4,
		Weights:      DefaultEdgeWeights(),
	}
}

// Candidate is one scored entry in the Stage 2/3 working set.
type Candidate struct {
	ID    string
	Score float64
}

// Expand performs the 1-hop graph expansion: for every
// candidate c, each of its stored relationships (outgoing + incoming)
// propagates a contribution s_c * alpha * w(R) to the neighbor on the other
// end. Neighbors already present in candidates are left untouched --
// expansion only ever adds new candidates, it never re-scores an existing
// one.
//
// When more than one seed proposes the same new neighbor, the neighbor
// keeps the single largest contribution rather than the sum of all of them
// (same grounding): a neighbor reachable from several strong seeds is not
// more relevant than the strongest single path to it.
//
// Because Stage 2's fused RRF scores are tiny (on the order of [0, 0.033]),
// raw contributions are normalized to [0, 1] by dividing by the largest
// contribution observed in this call purely to decide which ones clear
// PPRThreshold -- normalization exists only for the threshold test. The
// score attached to a surviving neighbor is its un-normalized contribution,
// so Stage 4's boosting sees scores on the same scale as Stage 2/3
// candidates that were never expansion targets.
func Expand(lookup RelationshipLookup, candidates []Candidate, opts Options) []Candidate {
	if !opts.Enabled || len(candidates) == 0 {
		return candidates
	}

	present := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		present[c.ID] = struct{}{}
	}

	contributions := make(map[string]float64)
	for _, seed := range candidates {
		for _, rel := range lookup.Get(seed.ID) {
			neighbor := otherEnd(rel, seed.ID)
			if neighbor == "" {
				continue
			}
			if _, ok := present[neighbor]; ok {
				continue
			}
			contribution := seed.Score * opts.ScoreWeight * opts.Weights.weight(rel.RelationType)
			if existing, ok := contributions[neighbor]; !ok || contribution > existing {
				contributions[neighbor] = contribution
			}
		}
	}

	if len(contributions) == 0 {
		return candidates
	}

	maxContribution := 0.0
	for _, v := range contributions {
		if v > maxContribution {
			maxContribution = v
		}
	}

	out := append([]Candidate(nil), candidates...)
	if maxContribution <= 0 {
		return out
	}

	neighborIDs := make([]string, 0, len(contributions))
	for id := range contributions {
		neighborIDs = append(neighborIDs, id)
	}
	sort.Strings(neighborIDs)

	for _, id := range neighborIDs {
		raw := contributions[id]
		normalized := raw / maxContribution
		if normalized < opts.PPRThreshold {
			continue
		}
		out = append(out, Candidate{ID: id, Score: raw})
	}
	return out
}

// otherEnd returns the id on the opposite end of rel from seedID, or "" if
// seedID is on neither end (should not happen for relationships fetched via
// Get(seedID)) or the edge is unresolved (no target).
func otherEnd(rel codemodel.Relationship, seedID string) string {
	switch seedID {
	case rel.SourceID:
		return rel.TargetID
	case rel.TargetID:
		return rel.SourceID
	default:
		return ""
	}
}
