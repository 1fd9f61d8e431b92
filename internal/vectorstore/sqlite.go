package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/codecontext/codecontext-core/internal/logging"
)

// SQLiteStore is the default Store implementation: one sqlite file per
// project collection, named codecontext_<project_id>.db.
type SQLiteStore struct {
	conn      *sql.DB
	logger    *logging.Logger
	projectID string
	path      string
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS points (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		dense BLOB,
		sparse TEXT,
		payload TEXT,
		file_path TEXT,
		language TEXT,
		object_type TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_points_file ON points(file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_points_kind ON points(kind)`,
	`CREATE TABLE IF NOT EXISTS file_checksums (
		file_path TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		last_indexed INTEGER NOT NULL,
		object_checksums TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS index_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		project_id TEXT,
		project_path TEXT,
		total_files INTEGER,
		total_objects INTEGER,
		total_documents INTEGER,
		last_indexed INTEGER,
		status TEXT,
		languages TEXT,
		relationships_blob BLOB
	)`,
	`CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`,
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA cache_size=-64000",
	"PRAGMA temp_store=MEMORY",
}

// OpenSQLiteStore opens (creating if absent) the sqlite collection file for
// projectID under dataDir.
func OpenSQLiteStore(dataDir, projectID string, logger *logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("vectorstore: create data dir: %w", err)
	}

	path := filepath.Join(dataDir, CollectionName(projectID)+".db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open %s: %w", path, err)
	}

	for _, pragma := range sqlitePragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("vectorstore: pragma %q: %w", pragma, err)
		}
	}

	return &SQLiteStore{conn: conn, logger: logger, projectID: projectID, path: path}, nil
}

// Initialize creates the schema if it does not already exist.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("vectorstore: schema: %w", err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", logging.Fields{"error": err.Error(), "rollback_error": rbErr.Error()})
		}
		return err
	}
	return tx.Commit()
}

// Upsert implements Store.
func (s *SQLiteStore) Upsert(ctx context.Context, points []Point) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO points (id, kind, dense, sparse, payload, file_path, language, object_type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind=excluded.kind, dense=excluded.dense, sparse=excluded.sparse,
				payload=excluded.payload, file_path=excluded.file_path,
				language=excluded.language, object_type=excluded.object_type
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range points {
			denseBlob, err := encodeDense(p.Dense)
			if err != nil {
				return err
			}
			sparseJSON, err := encodeSparse(p.Sparse)
			if err != nil {
				return err
			}
			payloadJSON, err := json.Marshal(p.Payload)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, p.ID, string(p.Kind), denseBlob, sparseJSON, payloadJSON, p.FilePath, p.Language, p.ObjectType); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM points WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByFile implements Store.
func (s *SQLiteStore) DeleteByFile(ctx context.Context, filePath string) (int, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM points WHERE file_path = ?`, filePath)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Point, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT id, kind, dense, sparse, payload, file_path, language, object_type FROM points WHERE id = ?`, id)
	return scanPoint(row)
}

// GetBatch implements Store, preserving the order of ids and silently
// skipping any id that is not found.
func (s *SQLiteStore) GetBatch(ctx context.Context, ids []string) ([]Point, error) {
	out := make([]Point, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// GetIndexedFilePaths implements Store.
func (s *SQLiteStore) GetIndexedFilePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT file_path FROM points WHERE file_path != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		out[fp] = struct{}{}
	}
	return out, rows.Err()
}

// GetPointsByFile implements Store, returning every point currently stored
// for filePath -- used by incremental sync to reconstruct unchanged files'
// objects for cross-file relationship recomputation without re-parsing them
// from disk ("relationships that cross changed and unchanged
// files are recomputed for the union"). Mirrors DeleteByFile's query shape
// with a SELECT in place of the DELETE.
func (s *SQLiteStore) GetPointsByFile(ctx context.Context, filePath string) ([]Point, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, kind, dense, sparse, payload, file_path, language, object_type FROM points WHERE file_path = ?`, filePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var (
			id, kind, fp, language, objectType string
			denseBlob                          []byte
			sparseJSON, payloadJSON            []byte
		)
		if err := rows.Scan(&id, &kind, &denseBlob, &sparseJSON, &payloadJSON, &fp, &language, &objectType); err != nil {
			return nil, err
		}
		dense, err := decodeDense(denseBlob)
		if err != nil {
			return nil, err
		}
		sparse, err := decodeSparse(sparseJSON)
		if err != nil {
			return nil, err
		}
		var payload map[string]interface{}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &payload); err != nil {
				return nil, err
			}
		}
		out = append(out, Point{
			ID: id, Kind: Kind(kind), Dense: dense, Sparse: sparse, Payload: payload,
			FilePath: fp, Language: language, ObjectType: objectType,
		})
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func scanPoint(row *sql.Row) (*Point, error) {
	var (
		id, kind, filePath, language, objectType string
		denseBlob                                 []byte
		sparseJSON, payloadJSON                   []byte
	)
	if err := row.Scan(&id, &kind, &denseBlob, &sparseJSON, &payloadJSON, &filePath, &language, &objectType); err != nil {
		return nil, err
	}

	dense, err := decodeDense(denseBlob)
	if err != nil {
		return nil, err
	}
	sparse, err := decodeSparse(sparseJSON)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &payload); err != nil {
			return nil, err
		}
	}

	return &Point{
		ID: id, Kind: Kind(kind), Dense: dense, Sparse: sparse, Payload: payload,
		FilePath: filePath, Language: language, ObjectType: objectType,
	}, nil
}

// fileChecksum row helpers live in state.go; point codec helpers live in
// codec.go.
