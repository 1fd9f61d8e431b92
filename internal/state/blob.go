// Package state implements the relationships_blob: a compact, versioned,
// zstd-compressed snapshot of every relationship in a project, persisted
// alongside IndexState as the fallback relationship source for result
// hydration -- results fetch relationships via the vector-store payload
// first, falling back to the relationships blob when the payload carries
// none. The envelope is version-stamped so a format change can be detected
// on load rather than misparsed, and zstd-compressed since the blob can
// hold every relationship in a large project and rides inside the same
// sqlite row as the rest of IndexState.
package state

import (
	"encoding/json"

	"github.com/klauspost/compress/zstd"

	"github.com/codecontext/codecontext-core/internal/cerrors"
	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// BlobVersion is the current relationships_blob format version, mirroring
// IndexMeta.Version field.
const BlobVersion = 1

// snapshot is the envelope written to relationships_blob before
// compression.
type snapshot struct {
	Version       int                      `json:"version"`
	Relationships []codemodel.Relationship `json:"relationships"`
}

// Encode serializes rels into a versioned, zstd-compressed blob suitable
// for codemodel.IndexState.RelationshipsBlob.
func Encode(rels []codemodel.Relationship) ([]byte, error) {
	raw, err := json.Marshal(snapshot{Version: BlobVersion, Relationships: rels})
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "marshal relationships snapshot", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "create zstd encoder", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// Decode reverses Encode. An empty blob decodes to (nil, nil) -- a project
// that has never been indexed, or indexed before relationships_blob
// existed, has no snapshot to report. A version mismatch is treated the
// same way LoadMeta treats one: as if there were no data,
// rather than an error, so a format upgrade never blocks a read.
func Decode(blob []byte) ([]codemodel.Relationship, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "create zstd decoder", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "decompress relationships blob", err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "unmarshal relationships snapshot", err)
	}
	if snap.Version != BlobVersion {
		return nil, nil
	}
	return snap.Relationships, nil
}

// CompressedSize returns len(blob), a thin readability wrapper used by
// status reporting to show the on-disk size of the relationships snapshot
// without callers needing to know the blob is a []byte under the hood.
func CompressedSize(blob []byte) int {
	return len(blob)
}
