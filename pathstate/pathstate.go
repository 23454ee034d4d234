// Package pathstate owns the per-path lifecycle table shared by the stability
// detector and the upload scheduler.
//
// A path is in at most one phase at a time. The detector claims a path with
// Track, the scheduler moves it to Queued and Running, and whichever side
// reaches a terminal outcome releases it. Because every transition goes
// through one mutex-guarded table, a path can never be polled while it is
// queued or uploading, and never has two concurrent upload attempts.
package pathstate

import (
	"sync"

	"github.com/samber/lo"
)

// Phase is the lifecycle phase of a tracked path.
type Phase int

const (
	// None means the path is not tracked.
	None Phase = iota
	// Polling means the detector is waiting for the file to stop changing.
	Polling
	// Queued means an upload job for the path waits in the scheduler queue.
	Queued
	// Running means the upload job for the path is executing.
	Running
)

func (p Phase) String() string {
	switch p {
	case None:
		return "none"
	case Polling:
		return "polling"
	case Queued:
		return "queued"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Table is a concurrency-safe map of path to Phase.
type Table struct {
	mu      sync.Mutex
	entries map[string]Phase
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make(map[string]Phase)}
}

// Track claims an untracked path for polling.
// It returns false if the path is already in any phase.
func (t *Table) Track(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[path]; ok {
		return false
	}
	t.entries[path] = Polling
	return true
}

// Enqueue marks a path as queued for upload. Untracked and polling paths are
// accepted; a path that is already queued or running is rejected.
func (t *Table) Enqueue(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.entries[path] {
	case None, Polling:
		t.entries[path] = Queued
		return true
	default:
		return false
	}
}

// Start moves a queued path to Running.
func (t *Table) Start(path string) bool {
	return t.transition(path, Queued, Running)
}

// Release forgets a path, but only while it is in the expected phase.
// This keeps a late poll goroutine from clearing the mark of a running upload.
func (t *Table) Release(path string, from Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries[path] != from || from == None {
		return false
	}
	delete(t.entries, path)
	return true
}

// Phase returns the current phase of path.
func (t *Table) Phase(path string) Phase {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.entries[path]
}

// Len returns the number of tracked paths.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Snapshot returns a copy of the table.
func (t *Table) Snapshot() map[string]Phase {
	t.mu.Lock()
	defer t.mu.Unlock()

	return lo.Assign(t.entries)
}

func (t *Table) transition(path string, from, to Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries[path] != from {
		return false
	}
	t.entries[path] = to
	return true
}
