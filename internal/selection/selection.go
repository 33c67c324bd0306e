// Package selection implements the SelectionSet state machine (spec §4.3,
// C3): cascading folder toggles, a selection-size limit enforced
// all-or-nothing, and race-free asynchronous counting fenced by a
// monotonically increasing OperationID. It has no direct teacher precedent
// (Harvx has no interactive selection); grounded on
// quantmind-br-shotgun-cli's FileTreeModel/SelectionState for the
// cascade-toggle shape, generalised with the OperationID fencing spec §4.3
// and §5 require.
package selection

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aibundle/aibundle/internal/ignoreengine"
	"github.com/aibundle/aibundle/internal/pathutil"
	"github.com/aibundle/aibundle/internal/walk"
)

// OperationID is a monotonic tag separating a background operation's valid
// result from stale ones (spec §3/§5).
type OperationID int64

// CountThreshold is the folder size above which descendant counting and
// cascade selection run asynchronously, showing a counting indicator (spec
// §4.3). Folders at or below this size are counted synchronously inline.
const CountThreshold = 50

// EventKind distinguishes what an Event reports.
type EventKind int

const (
	// EventCountReady carries a finished background descendant count for a
	// pending directory-select operation; drain it and call
	// ApplyCountResult(ev.OpID, ev.Count) to commit or reject it.
	EventCountReady EventKind = iota
	// EventLimitExceeded is not produced by Set itself -- it is the kind a
	// consumer should use when ApplyCountResult returns a limit error, so a
	// single Event type can drive both a "counting..." and a rejection
	// modal (spec scenario S3).
	EventLimitExceeded
)

// Event is sent on the Set's result channel for the event loop to drain.
// Stale events (whose OpID no longer matches the pending operation) are
// discarded with no state change by ApplyCountResult itself, per spec
// §4.3's fencing rule and testable property 4.
type Event struct {
	Kind  EventKind
	OpID  OperationID
	Count int
	Path  string
}

// Set is the selection state machine. It must be mutated only from a single
// goroutine (the event loop, per spec §4.3 "Concurrency") -- background
// counters communicate through the bounded Events channel instead of
// touching paths directly.
type Set struct {
	mu    sync.Mutex
	paths map[string]bool

	limit int

	currentOp atomic.Int64
	events    chan Event

	walker  *walk.Walker
	ignorer ignoreengine.Ignorer
	root    string

	pendingOp   OperationID
	pendingPath string
	pendingList []string
	cancel      *walk.CancelToken
}

// New creates an empty Set rooted at root, using walker/ignorer to resolve
// descendants for cascade operations. limit is the selection_limit (spec §4.3,
// default 400).
func New(root string, walker *walk.Walker, ignorer ignoreengine.Ignorer, limit int) *Set {
	return &Set{
		paths:   make(map[string]bool),
		limit:   limit,
		events:  make(chan Event, 100), // spec §5: bounded channel, capacity 100
		walker:  walker,
		ignorer: ignorer,
		root:    root,
	}
}

// Events returns the channel the event loop polls for background results.
func (s *Set) Events() <-chan Event {
	return s.events
}

// IsSelected reports whether path is a member of the set.
func (s *Set) IsSelected(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths[pathutil.Normalise(path)]
}

// Len returns |SelectionSet|.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Paths returns a snapshot slice of every selected path.
func (s *Set) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	return out
}

// PendingCount reports the OperationID of an in-flight async count, if any
// (spec §4.3 "pending_count() -> Option<OperationID>").
func (s *Set) PendingCount() (OperationID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return 0, false
	}
	return s.pendingOp, true
}

// bumpOp allocates a fresh OperationID, invalidating any operation already
// in flight (spec §4.3: "Cancelling a selection bumps the ID").
func (s *Set) bumpOp() OperationID {
	return OperationID(s.currentOp.Add(1))
}

// CancelPending cancels any in-flight async count/cascade (spec §4.5 "Esc
// during counting cancels the current operation").
func (s *Set) CancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel.Cancel()
		s.cancel = nil
	}
	s.bumpOp()
}

// isDescendantOrSelf reports whether p is path or a path-separated descendant
// of it, both normalised.
func isDescendantOrSelf(path, p string) bool {
	path = pathutil.Normalise(path)
	p = pathutil.Normalise(p)
	return p == path || pathutil.IsAncestor(path, p)
}

// removeSubtree deletes path and every selected descendant from the set
// (used for deselect cascades and for the "ancestor already selected"
// invariant cleanup).
func (s *Set) removeSubtree(path string) int {
	removed := 0
	for p := range s.paths {
		if isDescendantOrSelf(path, p) {
			delete(s.paths, p)
			removed++
		}
	}
	return removed
}
