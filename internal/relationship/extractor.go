package relationship

import "github.com/codecontext/codecontext-core/internal/codemodel"

// Index resolves code-object names to objects within a batch (typically one
// project's worth of parsed files), keyed by id, qualified name, and simple
// name.
type Index struct {
	byID        map[string]*codemodel.CodeObject
	byQualified map[string]*codemodel.CodeObject
	byName      map[string][]*codemodel.CodeObject
}

// NewIndex builds an Index over objects. Objects sharing a qualified_name
// overwrite each other in byQualified (qualified names are expected to be
// unique; a collision means the later object wins, same as a Go map
// literal with duplicate keys would behave).
func NewIndex(objects []codemodel.CodeObject) *Index {
	idx := &Index{
		byID:        make(map[string]*codemodel.CodeObject, len(objects)),
		byQualified: make(map[string]*codemodel.CodeObject, len(objects)),
		byName:      make(map[string][]*codemodel.CodeObject),
	}
	for i := range objects {
		obj := &objects[i]
		idx.byID[obj.ID] = obj
		if obj.QualifiedName != "" {
			idx.byQualified[obj.QualifiedName] = obj
		}
		idx.byName[obj.Name] = append(idx.byName[obj.Name], obj)
	}
	return idx
}

// ResolveQualified looks up an object by exact qualified_name match.
func (idx *Index) ResolveQualified(qualifiedName string) (*codemodel.CodeObject, bool) {
	obj, ok := idx.byQualified[qualifiedName]
	return obj, ok
}

// ResolveUniqueSimple looks up an object by simple name, but only when
// exactly one object carries that name; ambiguous names resolve to nothing.
func (idx *Index) ResolveUniqueSimple(name string) (*codemodel.CodeObject, bool) {
	candidates := idx.byName[name]
	if len(candidates) != 1 {
		return nil, false
	}
	return candidates[0], true
}

// CallSite is a call expression found inside a parsed object, as reported
// by an AST parser.
type CallSite struct {
	SourceID            string
	CalleeName          string
	CalleeQualifiedName string
}

// ReferenceSite is a symbol reference that is not itself a call.
type ReferenceSite struct {
	SourceID string
	RefName  string
}

// InheritanceSite is a declared base class or implemented interface.
type InheritanceSite struct {
	SourceID string
	BaseName string
	Language string
	Kind     InheritanceKind
}

// InheritanceKind distinguishes EXTENDS from IMPLEMENTS resolution.
type InheritanceKind string

const (
	KindExtends    InheritanceKind = "extends"
	KindImplements InheritanceKind = "implements"
)

const referenceConfidence = 0.4
const resolvedConfidence = 0.9
const uniqueNameConfidence = 0.6

// ExtractCrossFile runs Phase 2 cross-file resolution: for each
// call/reference/inheritance site, resolves the target by name against idx
// and emits a forward Relationship. Unresolved sites, and inheritance sites
// whose base is in another language, are dropped silently, never surfaced
// as an error -- indexing must continue
// regardless of how many references fail to resolve.
func ExtractCrossFile(idx *Index, calls []CallSite, refs []ReferenceSite, inherits []InheritanceSite) []codemodel.Relationship {
	var out []codemodel.Relationship

	for _, c := range calls {
		source, ok := idx.byID[c.SourceID]
		if !ok {
			continue
		}
		target, confidence, ok := resolveByName(idx, c.CalleeQualifiedName, c.CalleeName)
		if !ok || target.ID == source.ID {
			continue
		}
		out = append(out, buildRelationship(source, target, codemodel.RelationCalls, confidence))
	}

	for _, r := range refs {
		source, ok := idx.byID[r.SourceID]
		if !ok {
			continue
		}
		target, _, ok := resolveByName(idx, "", r.RefName)
		if !ok || target.ID == source.ID {
			continue
		}
		out = append(out, buildRelationship(source, target, codemodel.RelationReferences, referenceConfidence))
	}

	for _, inh := range inherits {
		source, ok := idx.byID[inh.SourceID]
		if !ok {
			continue
		}
		target, confidence, ok := resolveByName(idx, "", inh.BaseName)
		if !ok || target.Language != inh.Language {
			// Cross-language inheritance is dropped.
			continue
		}
		relType := codemodel.RelationExtends
		if inh.Kind == KindImplements {
			relType = codemodel.RelationImplements
		}
		out = append(out, buildRelationship(source, target, relType, confidence))
	}

	return out
}

// resolveByName implements resolution order: exact
// qualified-name match first, then unique simple-name match, else a miss.
func resolveByName(idx *Index, qualifiedName, simpleName string) (*codemodel.CodeObject, float64, bool) {
	if qualifiedName != "" {
		if obj, ok := idx.ResolveQualified(qualifiedName); ok {
			return obj, resolvedConfidence, true
		}
	}
	if obj, ok := idx.ResolveUniqueSimple(simpleName); ok {
		return obj, uniqueNameConfidence, true
	}
	return nil, 0, false
}

func buildRelationship(source, target *codemodel.CodeObject, relType codemodel.RelationType, confidence float64) codemodel.Relationship {
	return codemodel.NewRelationship(codemodel.Relationship{
		SourceID:     source.ID,
		SourceName:   source.Name,
		SourceType:   string(source.ObjectType),
		SourceFile:   source.FilePath,
		SourceLine:   source.StartLine,
		TargetID:     target.ID,
		TargetName:   target.Name,
		TargetType:   string(target.ObjectType),
		TargetFile:   target.FilePath,
		TargetLine:   target.StartLine,
		RelationType: relType,
		Metadata:     map[string]interface{}{"confidence": confidence},
	})
}

// ExtractContains builds CONTAINS/CONTAINED_BY relationships from the
// parent/child hierarchy already present in objects' metadata["parent_id"].
func ExtractContains(idx *Index, objects []codemodel.CodeObject) []codemodel.Relationship {
	var out []codemodel.Relationship
	for i := range objects {
		obj := &objects[i]
		parentID, _ := obj.Metadata["parent_id"].(string)
		if parentID == "" {
			continue
		}
		parent, ok := idx.byID[parentID]
		if !ok {
			continue
		}
		out = append(out, buildRelationship(parent, obj, codemodel.RelationContains, resolvedConfidence))
	}
	return out
}
