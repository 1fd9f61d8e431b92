package watcher

import (
	"sync"
	"time"
)

// debouncer collects paths touched by a burst of file events and flushes
// them as a single batch once delay has passed with no further events, so
// a build tool or editor touching dozens of files in one save doesn't
// trigger dozens of incremental syncs.
type debouncer struct {
	delay time.Duration
	emit  func([]string)

	mu    sync.Mutex
	timer *time.Timer
	paths map[string]struct{}
}

func newDebouncer(delay time.Duration, emit func([]string)) *debouncer {
	return &debouncer{delay: delay, emit: emit, paths: make(map[string]struct{})}
}

// add schedules path for the next flush, resetting the quiet-period timer.
func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.paths[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	paths := d.paths
	d.paths = make(map[string]struct{})
	d.timer = nil
	d.mu.Unlock()

	if len(paths) == 0 || d.emit == nil {
		return
	}
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	d.emit(out)
}

// stop cancels any pending flush without emitting it.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.paths = make(map[string]struct{})
}

// pendingCount reports how many distinct paths are queued for the next
// flush.
func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.paths)
}
