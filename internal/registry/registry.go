// Package registry implements the Project Registry: deriving a
// stable project_id for a directory, and list/status/delete operations
// over every project CodeContext has indexed. It persists a single
// cross-project manifest under ~/.codecontext, since list()/status()/
// delete() take only a project_id, not a project path, and need somewhere
// to learn every known project's path from.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/codecontext/codecontext-core/internal/cerrors"
	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/vectorstore"
)

// Entry is one project's registry record.
type Entry struct {
	ProjectID    string    `json:"project_id"`
	Path         string    `json:"path"`
	RegisteredAt time.Time `json:"registered_at"`
}

// manifest is the on-disk shape of ~/.codecontext/projects.json.
type manifest struct {
	Projects map[string]Entry `json:"projects"`
}

// Registry persists the project_id -> path mapping and opens per-project
// vector stores for status/delete.
type Registry struct {
	dataDir      string
	manifestPath string

	mu sync.Mutex
}

// New builds a Registry rooted at dataDir (typically ~/.codecontext/data).
// The manifest file lives as a sibling, dataDir/../projects.json.
func New(dataDir string) *Registry {
	return &Registry{
		dataDir:      dataDir,
		manifestPath: filepath.Join(filepath.Dir(dataDir), "projects.json"),
	}
}

// Register records path under projectID, creating or updating the entry.
func (r *Registry) Register(projectID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m.Projects[projectID] = Entry{ProjectID: projectID, Path: abs, RegisteredAt: time.Now()}
	return r.save(m)
}

// List returns every registered project.
func (r *Registry) List() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(m.Projects))
	for _, e := range m.Projects {
		out = append(out, e)
	}
	return out, nil
}

// Status is "status(project_id)": the registry entry plus
// the project's current IndexState, if one has been persisted.
type Status struct {
	Entry
	IndexState *codemodel.IndexState
}

// Status opens the project's collection and returns its registry entry
// and IndexState (nil if the project has never been synced).
func (r *Registry) Status(ctx context.Context, projectID string) (*Status, error) {
	r.mu.Lock()
	m, err := r.load()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	entry, ok := m.Projects[projectID]
	if !ok {
		return nil, cerrors.New(cerrors.ProjectNotFound, fmt.Sprintf("no project registered with id %q", projectID))
	}

	store, err := vectorstore.OpenSQLiteStore(r.dataDir, projectID, nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "open project collection", err)
	}
	defer store.Close()

	state, err := store.GetIndexState(ctx)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "load index state", err)
	}
	return &Status{Entry: entry, IndexState: state}, nil
}

// Delete drops a project's collection and its sibling state, then removes
// it from the manifest ("drop the collection and any sibling
// state. Deletion is all-or-nothing"). The collection file is removed
// before the manifest entry so a crash mid-delete leaves the project
// re-discoverable rather than silently orphaned.
func (r *Registry) Delete(projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := m.Projects[projectID]; !ok {
		return cerrors.New(cerrors.ProjectNotFound, fmt.Sprintf("no project registered with id %q", projectID))
	}

	dbPath := filepath.Join(r.dataDir, vectorstore.CollectionName(projectID)+".db")
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return cerrors.Wrap(cerrors.Storage, "remove collection file", err)
		}
	}

	delete(m.Projects, projectID)
	return r.save(m)
}

func (r *Registry) load() (*manifest, error) {
	data, err := os.ReadFile(r.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &manifest{Projects: map[string]Entry{}}, nil
		}
		return nil, cerrors.Wrap(cerrors.Storage, "read project registry", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "parse project registry", err)
	}
	if m.Projects == nil {
		m.Projects = map[string]Entry{}
	}
	return &m, nil
}

func (r *Registry) save(m *manifest) error {
	if err := os.MkdirAll(filepath.Dir(r.manifestPath), 0o755); err != nil {
		return cerrors.Wrap(cerrors.Storage, "create registry dir", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return cerrors.Wrap(cerrors.Storage, "encode project registry", err)
	}
	return os.WriteFile(r.manifestPath, data, 0o644)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize implements normalization: lowercase,
// non-[a-z0-9] runs collapse to a single "-", leading/trailing "-" are
// stripped, and the result is truncated to 63 chars.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 63 {
		s = strings.Trim(s[:63], "-")
	}
	return s
}

// DeriveProjectID implements priority: explicit flag >
// remote.origin.url's last path segment (normalized, .git suffix
// stripped) > directory name (normalized) > "project-" + 16 hex chars of
// SHA-256(abs_path).
func DeriveProjectID(ctx context.Context, root, explicit string) (string, error) {
	if explicit != "" {
		return Normalize(explicit), nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", cerrors.Wrap(cerrors.Configuration, "resolve project path", err)
	}

	if remote := gitRemoteOriginURL(ctx, abs); remote != "" {
		if seg := lastPathSegment(remote); seg != "" {
			return Normalize(seg), nil
		}
	}

	if name := filepath.Base(abs); name != "" && name != "." && name != string(filepath.Separator) {
		return Normalize(name), nil
	}

	return hashFallbackID(abs), nil
}

// gitRemoteOriginURL shells out to git, returning "" on any failure (no
// git installed, not a repo, no origin remote) so callers fall through to
// the next priority tier.
func gitRemoteOriginURL(ctx context.Context, root string) string {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", "-C", root, "config", "--get", "remote.origin.url")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func lastPathSegment(remoteURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(remoteURL, "/"), ".git")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// hashFallbackID is last-resort id: "project-" plus 16 hex
// chars of SHA-256(abs_path).
func hashFallbackID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return "project-" + hex.EncodeToString(sum[:])[:16]
}
