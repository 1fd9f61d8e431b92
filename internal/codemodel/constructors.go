package codemodel

import "github.com/codecontext/codecontext-core/internal/identity"

// NewCodeObject builds a CodeObject and assigns its deterministic id
//.
func NewCodeObject(obj CodeObject) CodeObject {
	obj.ID = identity.CodeObjectID(obj.FilePath, obj.QualifiedName, string(obj.ObjectType), obj.StartLine)
	return obj
}

// NewDocumentNode builds a DocumentNode and assigns its deterministic id.
func NewDocumentNode(node DocumentNode) DocumentNode {
	node.ID = identity.DocumentNodeID(node.RelativePath, string(node.NodeType), node.ChunkIndex)
	return node
}

// NewRelationship builds a Relationship and assigns its deterministic id.
// TargetID may be empty for unresolved edges;
// the id still hashes the empty string deterministically.
func NewRelationship(rel Relationship) Relationship {
	rel.ID = identity.RelationshipID(rel.SourceID, rel.TargetID, string(rel.RelationType))
	return rel
}
