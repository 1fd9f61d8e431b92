// Package watcher supplements CLI-triggered incremental sync
// with a live-watch mode: fsnotify-driven file events debounced into a
// batch, then handed to a caller-supplied handler (normally
// internal/indexer.Indexer.IncrementalSync).
//
// fsnotify-driven live watch replaces a git-HEAD/index polling loop --
// CodeContext tracks source trees, not git refs -- adopting the recursive
// directory-watch-with-dynamic-add idiom from cmd/gts/watch.go's
// addWatchRecursive for the same reason: fsnotify has no native recursive
// watch, so newly created directories must be added as they appear.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/codecontext/codecontext-core/internal/logging"
)

// ChangeHandler is invoked with a project's root and the batch of changed
// paths once the debounce quiet period has elapsed.
type ChangeHandler func(projectRoot string, changedPaths []string)

// Config contains watcher configuration: a live-watch supplement layered
// on top of indexing, with its own sensible defaults.
type Config struct {
	Enabled      bool     `json:"enabled" mapstructure:"enabled"`
	DebounceMs   int      `json:"debounceMs" mapstructure:"debounce_ms"`
	ExcludeGlobs []string `json:"excludeGlobs" mapstructure:"exclude_globs"`
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 2000,
		ExcludeGlobs: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/vendor/**",
			"**/__pycache__/**",
			"**/.codecontext/**",
			"**/*.log",
			"**/*.tmp",
		},
	}
}

// Watcher watches one or more project roots for file changes and debounces
// them into batched handler calls.
type Watcher struct {
	config  Config
	logger  *logging.Logger
	handler ChangeHandler

	mu       sync.Mutex
	projects map[string]*projectWatcher
}

// projectWatcher watches a single project root.
type projectWatcher struct {
	root      string
	fsw       *fsnotify.Watcher
	debouncer *debouncer
	stopCh    chan struct{}
}

// New creates a new Watcher. A nil Logger is replaced with a no-op one.
func New(config Config, logger *logging.Logger, handler ChangeHandler) *Watcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{
		config:   config,
		logger:   logger,
		handler:  handler,
		projects: make(map[string]*projectWatcher),
	}
}

// Start reports whether the watcher is enabled; it does no work of its own
// since WatchProject drives the actual fsnotify watches.
func (w *Watcher) Start() error {
	if !w.config.Enabled {
		w.logger.Info("file watcher is disabled", nil)
		return nil
	}
	w.logger.Info("file watcher starting", logging.Fields{"debounce_ms": w.config.DebounceMs})
	return nil
}

// Stop unwatches every project, signalling their goroutines to exit; it
// does not wait for them to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	roots := make([]string, 0, len(w.projects))
	for root := range w.projects {
		roots = append(roots, root)
	}
	w.mu.Unlock()

	for _, root := range roots {
		w.UnwatchProject(root)
	}
	w.logger.Info("file watcher stopped", nil)
	return nil
}

// WatchProject starts watching root, recursively adding every
// non-excluded directory. Re-watching an already-watched root is a no-op.
func (w *Watcher) WatchProject(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, exists := w.projects[abs]; exists {
		return nil
	}
	if !w.config.Enabled {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addWatchRecursive(fsw, abs, w.config.ExcludeGlobs); err != nil {
		fsw.Close()
		return err
	}

	pw := &projectWatcher{root: abs, fsw: fsw, stopCh: make(chan struct{})}
	pw.debouncer = newDebouncer(time.Duration(w.config.DebounceMs)*time.Millisecond, func(paths []string) {
		w.logger.Debug("file changes detected", logging.Fields{"root": abs, "paths": len(paths)})
		if w.handler != nil {
			w.handler(abs, paths)
		}
	})

	w.projects[abs] = pw
	go w.run(pw)

	w.logger.Info("watching project", logging.Fields{"root": abs})
	return nil
}

// UnwatchProject stops watching root.
func (w *Watcher) UnwatchProject(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	w.mu.Lock()
	pw, exists := w.projects[abs]
	if exists {
		delete(w.projects, abs)
	}
	w.mu.Unlock()

	if !exists {
		return
	}
	close(pw.stopCh)
	pw.fsw.Close()
	pw.debouncer.stop()
	w.logger.Info("stopped watching project", logging.Fields{"root": abs})
}

// run is the event loop for one project's fsnotify watcher.
func (w *Watcher) run(pw *projectWatcher) {
	for {
		select {
		case event, ok := <-pw.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(pw, event)
		case _, ok := <-pw.fsw.Errors:
			if !ok {
				return
			}
		case <-pw.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(pw *projectWatcher, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if isExcluded(pw.root, path, w.config.ExcludeGlobs) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			_ = addWatchRecursive(pw.fsw, path, w.config.ExcludeGlobs)
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	pw.debouncer.add(path)
}

// addWatchRecursive walks root, adding every directory not matched by
// excludeGlobs to fsw.
func addWatchRecursive(fsw *fsnotify.Watcher, root string, excludeGlobs []string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && isExcluded(root, path, excludeGlobs) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func isExcluded(root, path string, excludeGlobs []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	relSlash := filepath.ToSlash(rel)
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}
	for _, pattern := range excludeGlobs {
		if ok, _ := doublestar.Match(pattern, relSlash); ok {
			return true
		}
	}
	return false
}

// WatchedProjects returns every currently watched project root.
func (w *Watcher) WatchedProjects() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	roots := make([]string, 0, len(w.projects))
	for root := range w.projects {
		roots = append(roots, root)
	}
	return roots
}

// Stats reports introspection data about the watcher's current state.
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return map[string]interface{}{
		"enabled":          w.config.Enabled,
		"watched_projects": len(w.projects),
		"debounce_ms":      w.config.DebounceMs,
	}
}
