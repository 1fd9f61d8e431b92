package indexer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/embedding"
	"github.com/codecontext/codecontext-core/internal/logging"
	"github.com/codecontext/codecontext-core/internal/quality"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// embedUnit is one object or document awaiting embedding/encoding.
type embedUnit struct {
	id      string
	text    string
	payload map[string]interface{}
	sparse  bm25f.SparseVector
	kind    vectorstore.Kind
	file    string
	lang    string
	objType string
}

// buildPoints embeds and BM25F-encodes every object/document, pre-sorted by
// content length,
// and assembles the resulting vectorstore.Point batch. Embedding runs in
// Embedder.BatchSize() chunks with retry-with-backoff on failure; a chunk
// that still fails after Opts.MaxRetries contributes no points for its
// texts but does not abort the run.
//
// reuse maps an id already present in reuse to a previously stored point
// whose Dense vector can be copied instead of re-embedded, because the
// object's content checksum didn't change even though its file did (see
// IncrementalSync). Pass a nil map to always embed, as FullSync does.
func (ix *Indexer) buildPoints(ctx context.Context, objects []codemodel.CodeObject, documents []codemodel.DocumentNode, reuse map[string]vectorstore.Point) ([]vectorstore.Point, error) {
	units := make([]embedUnit, 0, len(objects)+len(documents))
	for _, obj := range objects {
		units = append(units, embedUnit{
			id:      obj.ID,
			text:    embedTextForObject(obj),
			payload: objectPayload(obj),
			sparse:  ix.BM25F.EncodeDocument(objectFields(obj)),
			kind:    vectorstore.KindCodeObject,
			file:    obj.FilePath,
			lang:    obj.Language,
			objType: string(obj.ObjectType),
		})
	}
	for _, doc := range documents {
		units = append(units, embedUnit{
			id:      doc.ID,
			text:    doc.Content,
			payload: documentPayload(doc),
			sparse:  ix.BM25F.EncodeDocument(documentFields(doc)),
			kind:    vectorstore.KindDocumentNode,
			file:    doc.FilePath,
			lang:    "document",
		})
	}

	order := sortIndicesByLength(units)

	vectors := make([]embedding.Vector, len(units))
	reused := 0
	toEmbed := make([]int, 0, len(order))
	for _, i := range order {
		if pt, ok := reuse[units[i].id]; ok {
			vectors[i] = pt.Dense
			reused++
			continue
		}
		toEmbed = append(toEmbed, i)
	}
	if reused > 0 {
		ix.Logger.Debug("reused unchanged object vectors", logging.Fields{"count": reused})
	}

	texts := make([]string, len(toEmbed))
	for pos, i := range toEmbed {
		texts[pos] = units[i].text
	}

	batchSize := ix.Embedder.BatchSize()
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	if batchSize == 0 {
		batchSize = 1
	}
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var embedded []embedding.Vector
		err := withRetry(ctx, retryOptions{MaxRetries: ix.Opts.MaxRetries, BaseSeconds: ix.Opts.RetryBaseSeconds, CapSeconds: ix.Opts.RetryCapSeconds}, func() error {
			var embedErr error
			embedded, embedErr = ix.Embedder.Embed(ctx, batch, embedding.NL2CodePassage)
			return embedErr
		})
		if err != nil {
			ix.Logger.Warn("embedding batch failed", logging.Fields{"batch_start": start, "batch_end": end, "error": err.Error()})
			continue
		}
		for j, v := range embedded {
			vectors[toEmbed[start+j]] = v
		}
	}

	points := make([]vectorstore.Point, 0, len(units))
	for i, u := range units {
		if vectors[i] == nil {
			continue // embedding failed for this unit's batch; skip, don't upsert a half point
		}
		u.payload["score_weight"] = quality.ScoreWeight(len(ix.Tokens.Tokenize(u.text)))
		points = append(points, vectorstore.Point{
			ID:         u.id,
			Kind:       u.kind,
			Dense:      vectors[i],
			Sparse:     u.sparse,
			Payload:    u.payload,
			FilePath:   u.file,
			Language:   u.lang,
			ObjectType: u.objType,
		})
	}
	return points, nil
}

func sortIndicesByLength(units []embedUnit) []int {
	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	// insertion sort is fine at typical per-file batch sizes and keeps this
	// helper free of a second named type just to satisfy sort.Interface.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && len(units[order[j-1]].text) > len(units[order[j]].text) {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
	return order
}

func embedTextForObject(obj codemodel.CodeObject) string {
	if obj.Content != "" {
		return obj.Content
	}
	return obj.Signature
}

func objectFields(obj codemodel.CodeObject) []bm25f.Field {
	return []bm25f.Field{
		{Name: "name", Content: obj.Name},
		{Name: "qualified_name", Content: obj.QualifiedName},
		{Name: "signature", Content: obj.Signature},
		{Name: "docstring", Content: obj.Docstring},
		{Name: "content", Content: obj.Content},
		{Name: "filename", Content: filepath.Base(obj.FilePath)},
		{Name: "file_path", Content: obj.FilePath},
	}
}

func documentFields(doc codemodel.DocumentNode) []bm25f.Field {
	return []bm25f.Field{
		{Name: "content", Content: doc.Content},
		{Name: "filename", Content: filepath.Base(doc.FilePath)},
		{Name: "file_path", Content: doc.FilePath},
	}
}

func objectPayload(obj codemodel.CodeObject) map[string]interface{} {
	return map[string]interface{}{
		"id":                     obj.ID,
		"name":                   obj.Name,
		"qualified_name":         obj.QualifiedName,
		"object_type":            obj.ObjectType,
		"language":               obj.Language,
		"file_path":              obj.FilePath,
		"relative_path":          obj.RelativePath,
		"start_line":             obj.StartLine,
		"end_line":               obj.EndLine,
		"content":                obj.Content,
		"signature":              obj.Signature,
		"docstring":              obj.Docstring,
		"checksum":               obj.Checksum,
		"metadata":               obj.Metadata,
		"outgoing_relationships": obj.OutgoingRelationships,
		"incoming_relationships": obj.IncomingRelationships,
	}
}

func documentPayload(doc codemodel.DocumentNode) map[string]interface{} {
	return map[string]interface{}{
		"id":            doc.ID,
		"node_type":     doc.NodeType,
		"content":       doc.Content,
		"file_path":     doc.FilePath,
		"relative_path": doc.RelativePath,
		"start_line":    doc.StartLine,
		"end_line":      doc.EndLine,
		"level":         doc.Level,
		"chunk_index":   doc.ChunkIndex,
		"total_chunks":  doc.TotalChunks,
		"metadata":      doc.Metadata,
	}
}

// upsertByFile deletes each touched file's existing points before upserting
// its fresh batch, so a file that lost objects doesn't leave orphaned points
// behind under stale ids, then records the new file checksum alongside a
// per-object checksum map so a later incremental run can tell which objects
// inside a modified file actually changed.
func (ix *Indexer) upsertByFile(ctx context.Context, units []fileUnit, points []vectorstore.Point) error {
	for _, u := range units {
		if _, err := ix.Store.DeleteByFile(ctx, u.relPath); err != nil {
			return err
		}
	}
	if len(points) > 0 {
		if err := ix.Store.Upsert(ctx, points); err != nil {
			return err
		}
	}
	for _, u := range units {
		objChecksums := make(map[string]string, len(u.objects))
		for _, obj := range u.objects {
			objChecksums[obj.ID] = obj.Checksum
		}
		if err := ix.Store.SetFileChecksum(ctx, codemodel.FileChecksum{
			FilePath:        u.relPath,
			Checksum:        u.checksum,
			LastIndexed:     time.Now().Unix(),
			ObjectChecksums: objChecksums,
		}); err != nil {
			return err
		}
	}
	return nil
}
