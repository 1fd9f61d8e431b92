package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// GetFileChecksum implements Store.
func (s *SQLiteStore) GetFileChecksum(ctx context.Context, filePath string) (*codemodel.FileChecksum, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT file_path, checksum, last_indexed, object_checksums FROM file_checksums WHERE file_path = ?`, filePath)

	var fc codemodel.FileChecksum
	var objChecksumsJSON []byte
	if err := row.Scan(&fc.FilePath, &fc.Checksum, &fc.LastIndexed, &objChecksumsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(objChecksumsJSON) > 0 {
		if err := json.Unmarshal(objChecksumsJSON, &fc.ObjectChecksums); err != nil {
			return nil, err
		}
	}
	return &fc, nil
}

// SetFileChecksum implements Store.
func (s *SQLiteStore) SetFileChecksum(ctx context.Context, fc codemodel.FileChecksum) error {
	objChecksumsJSON, err := json.Marshal(fc.ObjectChecksums)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO file_checksums (file_path, checksum, last_indexed, object_checksums)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			checksum=excluded.checksum, last_indexed=excluded.last_indexed,
			object_checksums=excluded.object_checksums
	`, fc.FilePath, fc.Checksum, fc.LastIndexed, objChecksumsJSON)
	return err
}

// GetFileChecksumsBatch implements Store.
func (s *SQLiteStore) GetFileChecksumsBatch(ctx context.Context, filePaths []string) (map[string]string, error) {
	out := make(map[string]string, len(filePaths))
	for _, fp := range filePaths {
		fc, err := s.GetFileChecksum(ctx, fp)
		if err != nil {
			return nil, err
		}
		if fc != nil {
			out[fp] = fc.Checksum
		}
	}
	return out, nil
}

// GetIndexState implements Store.
func (s *SQLiteStore) GetIndexState(ctx context.Context) (*codemodel.IndexState, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT project_id, project_path, total_files, total_objects, total_documents,
		       last_indexed, status, languages, relationships_blob
		FROM index_state WHERE id = 1
	`)

	var st codemodel.IndexState
	var languagesJSON []byte
	if err := row.Scan(&st.ProjectID, &st.ProjectPath, &st.TotalFiles, &st.TotalObjects,
		&st.TotalDocuments, &st.LastIndexed, &st.Status, &languagesJSON, &st.RelationshipsBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(languagesJSON) > 0 {
		if err := json.Unmarshal(languagesJSON, &st.Languages); err != nil {
			return nil, err
		}
	}

	checksums, err := s.allFileChecksums(ctx)
	if err != nil {
		return nil, err
	}
	st.FileChecksums = checksums
	return &st, nil
}

// SetIndexState implements Store. "single atomic state write"
// is satisfied by running inside one transaction.
func (s *SQLiteStore) SetIndexState(ctx context.Context, state codemodel.IndexState) error {
	languagesJSON, err := json.Marshal(state.Languages)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO index_state (id, project_id, project_path, total_files, total_objects,
			total_documents, last_indexed, status, languages, relationships_blob)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id=excluded.project_id, project_path=excluded.project_path,
			total_files=excluded.total_files, total_objects=excluded.total_objects,
			total_documents=excluded.total_documents, last_indexed=excluded.last_indexed,
			status=excluded.status, languages=excluded.languages,
			relationships_blob=excluded.relationships_blob
	`, state.ProjectID, state.ProjectPath, state.TotalFiles, state.TotalObjects,
		state.TotalDocuments, state.LastIndexed, string(state.Status), languagesJSON, state.RelationshipsBlob)
	return err
}

func (s *SQLiteStore) allFileChecksums(ctx context.Context) (map[string]codemodel.FileChecksum, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT file_path, checksum, last_indexed, object_checksums FROM file_checksums`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]codemodel.FileChecksum)
	for rows.Next() {
		var fc codemodel.FileChecksum
		var objChecksumsJSON []byte
		if err := rows.Scan(&fc.FilePath, &fc.Checksum, &fc.LastIndexed, &objChecksumsJSON); err != nil {
			return nil, err
		}
		if len(objChecksumsJSON) > 0 {
			if err := json.Unmarshal(objChecksumsJSON, &fc.ObjectChecksums); err != nil {
				return nil, err
			}
		}
		out[fc.FilePath] = fc
	}
	return out, rows.Err()
}

// GetState implements Store.
func (s *SQLiteStore) GetState(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return value, err
}

// SetState implements Store.
func (s *SQLiteStore) SetState(ctx context.Context, key string, value []byte) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, key, value)
	return err
}

// DeleteState implements Store.
func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM kv_state WHERE key = ?`, key)
	return err
}
