package state

import "github.com/codecontext/codecontext-core/internal/codemodel"

// Lookup indexes a decoded relationships_blob snapshot for point-style
// bidirectional access: the fallback retrieval path alongside the
// per-point payload. Get(id) mirrors reading an object's combined
// Outgoing+IncomingRelationships directly off its payload.
type Lookup struct {
	byObject map[string][]codemodel.Relationship
}

// NewLookup builds a Lookup over rels, a flat list of forward-direction
// edges (one entry per relationship, not per direction).
func NewLookup(rels []codemodel.Relationship) *Lookup {
	l := &Lookup{byObject: make(map[string][]codemodel.Relationship, len(rels)*2)}
	for _, rel := range rels {
		l.byObject[rel.SourceID] = append(l.byObject[rel.SourceID], rel)
		if rel.TargetID == "" {
			continue
		}
		if reverse, known := codemodel.Reverse(rel.RelationType); known {
			mirrored := rel
			mirrored.RelationType = reverse
			l.byObject[rel.TargetID] = append(l.byObject[rel.TargetID], mirrored)
		}
	}
	return l
}

// Get implements internal/graph.RelationshipLookup, returning every
// relationship touching id in either direction.
func (l *Lookup) Get(id string) []codemodel.Relationship {
	return l.byObject[id]
}
