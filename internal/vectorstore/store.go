// Package vectorstore defines the Store contract and a sqlite-backed
// implementation of it, with named dense/sparse vectors, a JSON payload
// per point, and RRF fusion.
package vectorstore

import (
	"context"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/embedding"
)

// Kind distinguishes the two point families a collection holds.
type Kind string

const (
	KindCodeObject   Kind = "code_object"
	KindDocumentNode Kind = "document_node"
)

// Point is one upsertable unit: an id, its two named vectors,
// and a JSON-like payload carrying the entity's fields plus score_weight
// and denormalized relationships.
type Point struct {
	ID       string
	Kind     Kind
	Dense    embedding.Vector
	Sparse   bm25f.SparseVector
	Payload  map[string]interface{}
	FilePath string
	Language string

	// ObjectType is only meaningful for KindCodeObject points; left empty
	// for KindDocumentNode so Filters.ObjectType never matches documents.
	ObjectType string
}

// Filters narrow a search or listing to a subset of points: language,
// file_path pattern, object_type, and so on.
type Filters struct {
	Language        string
	FilePathPattern string
	ObjectType      string
	Kind            Kind // empty means both kinds
}

// Fusion selects how Search combines the dense and sparse prefetch lists.
type Fusion string

const (
	FusionRRF      Fusion = "rrf"
	FusionDBSF     Fusion = "dbsf"
	FusionWeighted Fusion = "weighted"
)

// SearchResult is one fused hit.
type SearchResult struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

// Store is the vector-store contract of this.
type Store interface {
	Initialize(ctx context.Context) error

	Upsert(ctx context.Context, points []Point) error
	Delete(ctx context.Context, ids []string) error
	DeleteByFile(ctx context.Context, filePath string) (int, error)

	Search(ctx context.Context, qDense embedding.Vector, qSparse bm25f.SparseVector, limit int, filters Filters, fusion Fusion) ([]SearchResult, error)

	Get(ctx context.Context, id string) (*Point, error)
	GetBatch(ctx context.Context, ids []string) ([]Point, error)
	GetIndexedFilePaths(ctx context.Context) (map[string]struct{}, error)
	GetPointsByFile(ctx context.Context, filePath string) ([]Point, error)

	GetFileChecksum(ctx context.Context, filePath string) (*codemodel.FileChecksum, error)
	SetFileChecksum(ctx context.Context, fc codemodel.FileChecksum) error
	GetFileChecksumsBatch(ctx context.Context, filePaths []string) (map[string]string, error)

	GetIndexState(ctx context.Context) (*codemodel.IndexState, error)
	SetIndexState(ctx context.Context, state codemodel.IndexState) error

	GetState(ctx context.Context, key string) ([]byte, error)
	SetState(ctx context.Context, key string, value []byte) error
	DeleteState(ctx context.Context, key string) error

	Close() error
}

// CollectionName derives the collection identifier for a project:
// codecontext_<project_id>.
func CollectionName(projectID string) string {
	return "codecontext_" + projectID
}
