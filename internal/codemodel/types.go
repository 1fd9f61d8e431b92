// Package codemodel defines the entities indexed by CodeContext -- CodeObject,
// DocumentNode, Relationship, FileChecksum, IndexState -- and the closed
// enums that classify them, as idiomatic Go structs with JSON tags for
// vector-store payload (de)serialization.
package codemodel

// ObjectType classifies a CodeObject.
type ObjectType string

const (
	ObjectClass     ObjectType = "class"
	ObjectInterface ObjectType = "interface"
	ObjectEnum      ObjectType = "enum"
	ObjectMethod    ObjectType = "method"
	ObjectFunction  ObjectType = "function"
	ObjectField     ObjectType = "field"
	ObjectVariable  ObjectType = "variable"
	ObjectConstant  ObjectType = "constant"
	ObjectProperty  ObjectType = "property"
	ObjectType_     ObjectType = "type"
	ObjectImport    ObjectType = "import"
)

// NodeType classifies a DocumentNode.
type NodeType string

const (
	NodeHeading   NodeType = "heading"
	NodeParagraph NodeType = "paragraph"
	NodeCodeBlock NodeType = "code_block"
	NodeConfigKey NodeType = "config_key"
)

// RelationType is one of the 22 enumerated relationship types, forming 11
// forward/reverse pairs. See ReverseMap.
type RelationType string

const (
	RelationCalls    RelationType = "CALLS"
	RelationCalledBy RelationType = "CALLED_BY"

	RelationReferences   RelationType = "REFERENCES"
	RelationReferencedBy RelationType = "REFERENCED_BY"

	RelationExtends    RelationType = "EXTENDS"
	RelationExtendedBy RelationType = "EXTENDED_BY"

	RelationImplements    RelationType = "IMPLEMENTS"
	RelationImplementedBy RelationType = "IMPLEMENTED_BY"

	RelationContains    RelationType = "CONTAINS"
	RelationContainedBy RelationType = "CONTAINED_BY"

	RelationImports    RelationType = "IMPORTS"
	RelationImportedBy RelationType = "IMPORTED_BY"

	RelationDependsOn  RelationType = "DEPENDS_ON"
	RelationDependedBy RelationType = "DEPENDED_BY"

	RelationAnnotates   RelationType = "ANNOTATES"
	RelationAnnotatedBy RelationType = "ANNOTATED_BY"

	RelationDocuments    RelationType = "DOCUMENTS"
	RelationDocumentedBy RelationType = "DOCUMENTED_BY"

	RelationMentions    RelationType = "MENTIONS"
	RelationMentionedIn RelationType = "MENTIONED_IN"

	RelationImplementsSpec RelationType = "IMPLEMENTS_SPEC"
	RelationImplementedIn  RelationType = "IMPLEMENTED_IN"
)

// ReverseMap holds all 22 relation types as 11 forward/reverse pairs: the
// 6 structural/call pairs (CALLS, REFERENCES, EXTENDS, IMPLEMENTS,
// CONTAINS, IMPORTS) plus 5 more (DEPENDS_ON, ANNOTATES, DOCUMENTS,
// MENTIONS, IMPLEMENTS_SPEC) covering dependency, annotation, and
// documentation edges (see DESIGN.md).
var ReverseMap = map[RelationType]RelationType{
	RelationCalls:    RelationCalledBy,
	RelationCalledBy: RelationCalls,

	RelationReferences:   RelationReferencedBy,
	RelationReferencedBy: RelationReferences,

	RelationExtends:    RelationExtendedBy,
	RelationExtendedBy: RelationExtends,

	RelationImplements:    RelationImplementedBy,
	RelationImplementedBy: RelationImplements,

	RelationContains:    RelationContainedBy,
	RelationContainedBy: RelationContains,

	RelationImports:    RelationImportedBy,
	RelationImportedBy: RelationImports,

	RelationDependsOn:  RelationDependedBy,
	RelationDependedBy: RelationDependsOn,

	RelationAnnotates:   RelationAnnotatedBy,
	RelationAnnotatedBy: RelationAnnotates,

	RelationDocuments:    RelationDocumentedBy,
	RelationDocumentedBy: RelationDocuments,

	RelationMentions:    RelationMentionedIn,
	RelationMentionedIn: RelationMentions,

	RelationImplementsSpec: RelationImplementedIn,
	RelationImplementedIn:  RelationImplementsSpec,
}

// Reverse returns the paired reverse relation type and whether r is known.
func Reverse(r RelationType) (RelationType, bool) {
	rev, ok := ReverseMap[r]
	return rev, ok
}

// IndexStatus describes the lifecycle state of a project's IndexState.
type IndexStatus string

const (
	StatusPending  IndexStatus = "pending"
	StatusIndexing IndexStatus = "indexing"
	StatusReady    IndexStatus = "ready"
	StatusFailed   IndexStatus = "failed"
)

// CodeObject is a semantic code fragment.
type CodeObject struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	QualifiedName string                 `json:"qualified_name"`
	ObjectType    ObjectType             `json:"object_type"`
	Language      string                 `json:"language"`
	FilePath      string                 `json:"file_path"`
	RelativePath  string                 `json:"relative_path"`
	StartLine     int                    `json:"start_line"`
	EndLine       int                    `json:"end_line"`
	Content       string                 `json:"content"`
	Signature     string                 `json:"signature"`
	Docstring     string                 `json:"docstring"`
	Checksum      string                 `json:"checksum"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`

	// OutgoingRelationships and IncomingRelationships are denormalized into
	// the vector-store payload alongside each point so a search result's
	// relationships can be rendered without a second query.
	OutgoingRelationships []Relationship `json:"outgoing_relationships,omitempty"`
	IncomingRelationships []Relationship `json:"incoming_relationships,omitempty"`
}

// DocumentNode is a chunk of documentation or configuration.
type DocumentNode struct {
	ID           string                 `json:"id"`
	NodeType     NodeType               `json:"node_type"`
	Content      string                 `json:"content"`
	FilePath     string                 `json:"file_path"`
	RelativePath string                 `json:"relative_path"`
	StartLine    int                    `json:"start_line"`
	EndLine      int                    `json:"end_line"`
	Level        int                    `json:"level,omitempty"`
	ParentID     string                 `json:"parent_id,omitempty"`
	ChunkIndex   int                    `json:"chunk_index"`
	TotalChunks  int                    `json:"total_chunks"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Relationship is a directed edge between two entities.
type Relationship struct {
	ID           string                 `json:"id"`
	SourceID     string                 `json:"source_id"`
	TargetID     string                 `json:"target_id,omitempty"`
	RelationType RelationType           `json:"relation_type"`

	// Denormalized identity fields let relationship rendering avoid a
	// second lookup.
	SourceName string `json:"source_name,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
	SourceLine int    `json:"source_line,omitempty"`

	TargetName string `json:"target_name,omitempty"`
	TargetType string `json:"target_type,omitempty"`
	TargetFile string `json:"target_file,omitempty"`
	TargetLine int    `json:"target_line,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// FileChecksum tracks per-file content hashes for incremental re-index.
// ObjectChecksums maps CodeObject.ID to its own checksum so an unchanged
// file that still shifted an object's id (e.g. a reordered function) can
// be diffed at the object level, not just the file level.
type FileChecksum struct {
	FilePath        string            `json:"file_path"`
	Checksum        string            `json:"checksum"`
	LastIndexed     int64             `json:"last_indexed"`
	ObjectChecksums map[string]string `json:"object_checksums,omitempty"`
}

// IndexState is a per-project summary persisted into the vector store
// so that searches and subsequent incremental runs can load it
// without re-scanning the filesystem.
type IndexState struct {
	ProjectID         string                  `json:"project_id"`
	ProjectPath       string                  `json:"project_path"`
	TotalFiles        int                     `json:"total_files"`
	TotalObjects      int                     `json:"total_objects"`
	TotalDocuments    int                     `json:"total_documents"`
	LastIndexed       int64                   `json:"last_indexed"`
	Status            IndexStatus             `json:"status"`
	Languages         []string                `json:"languages,omitempty"`
	FileChecksums     map[string]FileChecksum `json:"file_checksums"`
	RelationshipsBlob []byte                  `json:"relationships_blob,omitempty"`
}
