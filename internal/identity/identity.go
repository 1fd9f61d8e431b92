// Package identity generates the deterministic, content-addressed ids used
// throughout the code model, built on a canonical-string + SHA-256 idiom
// with hash inputs chosen per entity kind rather than a single
// symbol-fingerprint scheme shared across kinds.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// idLength is the number of hex characters kept from the full SHA-256
// digest.
const idLength = 32

func hashParts(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte(":"))
		}
		h.Write([]byte(p))
	}
	digest := hex.EncodeToString(h.Sum(nil))
	return digest[:idLength]
}

// CodeObjectID is the deterministic id of a CodeObject:
// sha256(file_path:qualified_name:start_line:object_type)[:32]. end_line is
// deliberately excluded: an unchanged CodeObject keeps its id even if only
// end_line shifts (e.g. a trailing blank line is added inside the body),
// since end_line is not part of the object's identity, only its extent.
func CodeObjectID(filePath, qualifiedName, objectType string, startLine int) string {
	return hashParts(filePath, qualifiedName, fmt.Sprint(startLine), objectType)
}

// DocumentNodeID is the deterministic id of a DocumentNode:
// sha256(relative_path:node_type:chunk_index)[:32].
func DocumentNodeID(relativePath, nodeType string, chunkIndex int) string {
	return hashParts(relativePath, nodeType, fmt.Sprint(chunkIndex))
}

// RelationshipID is the deterministic id of a Relationship:
// sha256(source_id:target_id:relation_type)[:32].
func RelationshipID(sourceID, targetID, relationType string) string {
	return hashParts(sourceID, targetID, relationType)
}

// ObjectContentChecksum hashes a CodeObject's content and signature,
// independent of its file path or position, so an unchanged function keeps
// the same checksum even if it shifts line or moves within the file, and a
// changed one gets a new checksum even if its file-level checksum is shared
// with sibling objects that didn't change.
func ObjectContentChecksum(content, signature string) string {
	return hashParts(content, signature)
}

// FileChecksumID is the deterministic id of a FileChecksum record, keyed by
// the file's relative path alone -- there is exactly one per tracked file.
func FileChecksumID(relativePath string) string {
	return hashParts(relativePath)
}

// IndexStateID is the deterministic id of a project's IndexState record,
// keyed by the project id alone -- there is exactly one per project.
func IndexStateID(projectID string) string {
	return hashParts(projectID)
}
