package indexer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codecontext/codecontext-core/internal/cerrors"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/logging"
	"github.com/codecontext/codecontext-core/internal/relationship"
	"github.com/codecontext/codecontext-core/internal/state"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

// changeClass is one file's classification against the prior index state:
// added, modified, unchanged, or deleted, determined by checksum and
// presence.
type changeClass int

const (
	unchanged changeClass = iota
	added
	modified
	deleted
)

// IncrementalSync runs the incremental pipeline: classify every
// file by presence and checksum against the store's current state, delete
// points for files that disappeared, re-parse and re-upsert added/modified
// files, and recompute relationships across the union of changed and
// unchanged files so cross-file edges stay correct without a full re-walk.
// Prior state is read from vectorstore.Store rather than a git tree, since
// CodeContext carries no git dependency for change detection.
func (ix *Indexer) IncrementalSync(ctx context.Context, projectID, projectRoot string) (*Result, error) {
	start := time.Now()

	if err := ix.Store.Initialize(ctx); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "initialize vector store", err)
	}

	discovered, err := walkProject(walkOptions{
		Root:             projectRoot,
		IncludeGlobs:     ix.Opts.IncludeGlobs,
		ExcludeGlobs:     ix.Opts.ExcludeGlobs,
		MaxFileSizeBytes: ix.Opts.MaxFileSizeBytes,
	})
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Indexing, "walk project tree", err)
	}
	byPath := make(map[string]discoveredFile, len(discovered))
	for _, f := range discovered {
		byPath[f.RelPath] = f
	}

	indexedPaths, err := ix.Store.GetIndexedFilePaths(ctx)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "load indexed file paths", err)
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	priorChecksums, err := ix.Store.GetFileChecksumsBatch(ctx, paths)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "load prior checksums", err)
	}

	var changedFiles []discoveredFile
	var deletedPaths []string
	var unchangedPaths []string
	var modifiedPaths []string
	for p, f := range byPath {
		switch classify(p, f.Checksum, indexedPaths, priorChecksums) {
		case added:
			changedFiles = append(changedFiles, f)
		case modified:
			changedFiles = append(changedFiles, f)
			modifiedPaths = append(modifiedPaths, p)
		case unchanged:
			unchangedPaths = append(unchangedPaths, p)
		}
	}
	for p := range indexedPaths {
		if _, stillPresent := byPath[p]; !stillPresent {
			deletedPaths = append(deletedPaths, p)
		}
	}

	for _, p := range deletedPaths {
		if _, err := ix.Store.DeleteByFile(ctx, p); err != nil {
			return nil, cerrors.Wrap(cerrors.Storage, "delete removed file", err)
		}
	}

	units, failed := ix.parseFiles(ctx, changedFiles)

	reuse := ix.loadReusableObjectVectors(ctx, modifiedPaths, units)

	changedObjects, changedDocuments, allCalls, allRefs, allInherits := flattenUnits(units)

	unchangedObjects, unchangedPoints := ix.loadUnchangedObjects(ctx, unchangedPaths)

	union := make([]codemodel.CodeObject, 0, len(changedObjects)+len(unchangedObjects))
	union = append(union, changedObjects...)
	union = append(union, unchangedObjects...)

	idx := relationship.NewIndex(union)
	relationships := relationship.ExtractContains(idx, changedObjects)
	relationships = append(relationships, relationship.ExtractCrossFile(idx, allCalls, allRefs, allInherits)...)
	attachDenormalizedRelationships(union, relationships)

	changedFinal := union[:len(changedObjects)]
	unchangedFinal := union[len(changedObjects):]

	points, err := ix.buildPoints(ctx, changedFinal, changedDocuments, reuse)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Embedding, "embed and encode batch", err)
	}
	if err := ix.upsertByFile(ctx, units, points); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "upsert changed points", err)
	}

	touched := ix.reupsertTouchedUnchanged(ctx, unchangedFinal, unchangedPoints)

	indexState, err := ix.mergedIndexState(ctx, projectID, projectRoot, union, unchangedPaths)
	if err != nil {
		return nil, err
	}
	if err := ix.Store.SetIndexState(ctx, *indexState); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "persist index state", err)
	}

	return &Result{
		ProjectID:         projectID,
		FilesIndexed:      len(units),
		FilesSkipped:      len(unchangedPaths) - touched,
		FilesFailed:       failed,
		ObjectsIndexed:    len(changedObjects),
		DocumentsIndexed:  len(changedDocuments),
		RelationshipCount: len(relationships),
		Languages:         indexState.Languages,
		Duration:          time.Since(start),
	}, nil
}

// classify implements added|modified|unchanged decision. A
// path absent from indexedPaths is added; present with a differing
// checksum is modified; otherwise unchanged. Deletion is decided by the
// caller from the complement of the discovered set.
func classify(path, checksum string, indexedPaths map[string]struct{}, priorChecksums map[string]string) changeClass {
	if _, ok := indexedPaths[path]; !ok {
		return added
	}
	if prior, ok := priorChecksums[path]; !ok || prior != checksum {
		return modified
	}
	return unchanged
}

// loadUnchangedObjects reconstructs CodeObjects for files that did not
// change, so the cross-file relationship index spans the union of changed
// and unchanged files. It avoids re-parsing the unchanged files from disk
// by decoding their already-stored point payloads via
// vectorstore.Store.GetPointsByFile.
func (ix *Indexer) loadUnchangedObjects(ctx context.Context, paths []string) ([]codemodel.CodeObject, map[string]vectorstore.Point) {
	var objects []codemodel.CodeObject
	byID := make(map[string]vectorstore.Point)
	for _, p := range paths {
		pts, err := ix.Store.GetPointsByFile(ctx, p)
		if err != nil {
			ix.Logger.Warn("load unchanged file points failed", logging.Fields{"file": p, "error": err.Error()})
			continue
		}
		for _, pt := range pts {
			byID[pt.ID] = pt
			if pt.Kind != vectorstore.KindCodeObject {
				continue
			}
			obj, ok := reconstructObject(pt)
			if !ok {
				continue
			}
			objects = append(objects, obj)
		}
	}
	return objects, byID
}

// loadReusableObjectVectors finds, among the freshly re-parsed objects of
// every modified file, the ones whose content checksum matches the prior
// run's per-object checksum for the same id -- a modified file can still
// contain objects that themselves didn't change, e.g. an edit further down
// the file that leaves an earlier function's start line, and so its id,
// untouched -- and returns their previously stored
// points keyed by id so buildPoints can copy the stored vector instead of
// re-embedding unchanged text.
func (ix *Indexer) loadReusableObjectVectors(ctx context.Context, modifiedPaths []string, units []fileUnit) map[string]vectorstore.Point {
	if len(modifiedPaths) == 0 {
		return nil
	}
	byPath := make(map[string][]codemodel.CodeObject, len(units))
	for _, u := range units {
		byPath[u.relPath] = u.objects
	}

	reuse := make(map[string]vectorstore.Point)
	for _, p := range modifiedPaths {
		objects := byPath[p]
		if len(objects) == 0 {
			continue
		}
		prior, err := ix.Store.GetFileChecksum(ctx, p)
		if err != nil || prior == nil || len(prior.ObjectChecksums) == 0 {
			continue
		}
		pts, err := ix.Store.GetPointsByFile(ctx, p)
		if err != nil {
			continue
		}
		byID := make(map[string]vectorstore.Point, len(pts))
		for _, pt := range pts {
			byID[pt.ID] = pt
		}
		for _, obj := range objects {
			priorChecksum, ok := prior.ObjectChecksums[obj.ID]
			if !ok || priorChecksum != obj.Checksum {
				continue
			}
			if pt, ok := byID[obj.ID]; ok {
				reuse[obj.ID] = pt
			}
		}
	}
	if len(reuse) == 0 {
		return nil
	}
	return reuse
}

// reupsertTouchedUnchanged re-upserts the stored point for every unchanged
// object whose IncomingRelationships grew as a result of recomputing
// cross-file edges this round, so newly discovered incoming edges from a
// re-parsed caller are visible on the callee's payload. Reuses the
// previously stored dense/sparse vectors rather than re-embedding.
func (ix *Indexer) reupsertTouchedUnchanged(ctx context.Context, objects []codemodel.CodeObject, stored map[string]vectorstore.Point) int {
	var toUpsert []vectorstore.Point
	for _, obj := range objects {
		pt, ok := stored[obj.ID]
		if !ok {
			continue
		}
		prior, _ := pt.Payload["incoming_relationships"].([]interface{})
		if len(obj.IncomingRelationships) <= len(prior) {
			continue
		}
		pt.Payload["incoming_relationships"] = obj.IncomingRelationships
		pt.Payload["outgoing_relationships"] = obj.OutgoingRelationships
		toUpsert = append(toUpsert, pt)
	}
	if len(toUpsert) == 0 {
		return 0
	}
	if err := ix.Store.Upsert(ctx, toUpsert); err != nil {
		ix.Logger.Warn("re-upsert touched unchanged points failed", logging.Fields{"error": err.Error()})
		return 0
	}
	return len(toUpsert)
}

// mergedIndexState folds the prior state's unchanged-file bookkeeping
// together with this round's totals, since an incremental run only ever
// touches a subset of the project's files. The relationships_blob is
// re-derived from union's denormalized OutgoingRelationships rather than
// merged against the prior blob -- union already spans every object the
// project now has (changed plus reloaded-unchanged), so walking its
// OutgoingRelationships yields the same full-project edge set that would
// otherwise require decoding the prior blob and reconciling it against
// this round's changed files.
func (ix *Indexer) mergedIndexState(ctx context.Context, projectID, projectRoot string, union []codemodel.CodeObject, unchangedPaths []string) (*codemodel.IndexState, error) {
	prior, err := ix.Store.GetIndexState(ctx)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "load prior index state", err)
	}
	languages := distinctLanguagesFromObjects(union)
	if prior != nil {
		languages = mergeLanguages(languages, prior.Languages)
	}

	blob, err := state.Encode(relationshipsFromObjects(union))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "encode relationships blob", err)
	}

	return &codemodel.IndexState{
		ProjectID:         projectID,
		ProjectPath:       projectRoot,
		TotalFiles:        len(unchangedPaths) + countDistinctFiles(union),
		TotalObjects:      len(union),
		LastIndexed:       time.Now().Unix(),
		Status:            codemodel.StatusReady,
		Languages:         languages,
		RelationshipsBlob: blob,
	}, nil
}

// relationshipsFromObjects collects the forward-direction edge set off
// union's denormalized OutgoingRelationships, deduplicated by the triple
// that identifies an edge -- each relationship was mirrored onto its
// target's IncomingRelationships by attachDenormalizedRelationships, so
// reading only the outgoing side avoids double-counting.
func relationshipsFromObjects(objects []codemodel.CodeObject) []codemodel.Relationship {
	type key struct {
		source, target string
		relType         codemodel.RelationType
	}
	seen := make(map[key]struct{})
	var out []codemodel.Relationship
	for _, obj := range objects {
		for _, rel := range obj.OutgoingRelationships {
			k := key{rel.SourceID, rel.TargetID, rel.RelationType}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, rel)
		}
	}
	return out
}

func distinctLanguagesFromObjects(objects []codemodel.CodeObject) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range objects {
		if o.Language == "" || seen[o.Language] {
			continue
		}
		seen[o.Language] = true
		out = append(out, o.Language)
	}
	return out
}

func mergeLanguages(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range append(append([]string{}, a...), b...) {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func countDistinctFiles(objects []codemodel.CodeObject) int {
	seen := map[string]bool{}
	for _, o := range objects {
		seen[o.FilePath] = true
	}
	return len(seen)
}

// reconstructObject decodes a stored point's payload back into a
// CodeObject. Numeric and relationship fields round-trip through the
// store's JSON payload as float64/[]interface{}, so they are re-marshaled
// into their concrete types rather than type-asserted directly.
func reconstructObject(p vectorstore.Point) (codemodel.CodeObject, bool) {
	obj := codemodel.CodeObject{
		ID:         p.ID,
		FilePath:   p.FilePath,
		Language:   p.Language,
		ObjectType: codemodel.ObjectType(p.ObjectType),
	}
	payload := p.Payload
	if payload == nil {
		return obj, false
	}
	obj.Name, _ = payload["name"].(string)
	obj.QualifiedName, _ = payload["qualified_name"].(string)
	obj.RelativePath, _ = payload["relative_path"].(string)
	obj.Content, _ = payload["content"].(string)
	obj.Signature, _ = payload["signature"].(string)
	obj.Docstring, _ = payload["docstring"].(string)
	obj.Checksum, _ = payload["checksum"].(string)
	obj.StartLine = asInt(payload["start_line"])
	obj.EndLine = asInt(payload["end_line"])
	obj.Metadata, _ = payload["metadata"].(map[string]interface{})
	obj.OutgoingRelationships = decodeRelationships(payload["outgoing_relationships"])
	obj.IncomingRelationships = decodeRelationships(payload["incoming_relationships"])
	return obj, obj.ID != ""
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func decodeRelationships(v interface{}) []codemodel.Relationship {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var rels []codemodel.Relationship
	if err := json.Unmarshal(raw, &rels); err != nil {
		return nil
	}
	return rels
}
