package selection

import (
	"context"
	"path/filepath"

	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/pathutil"
	"github.com/aibundle/aibundle/internal/walk"
)

// Toggle toggles membership of path (spec §4.3 "toggle(path)"). For a file,
// the mutation is synchronous and applied is always true on success. For a
// directory being selected (not deselected), descendant counting happens
// first; if the subtree is small (<= CountThreshold) the cascade applies
// synchronously. For larger subtrees, Toggle starts a background count/
// collect and returns applied=false -- the caller must drain Events and call
// ApplyCountResult(ev.OpID, ev.Count) once it arrives, per spec's
// OperationID fencing. Deselecting a directory is always synchronous: it
// only needs to scan paths already held in memory, never the filesystem.
func (s *Set) Toggle(ctx context.Context, path string, isDir bool) (applied bool, err error) {
	norm := pathutil.Normalise(path)

	if !isDir {
		return s.toggleFile(norm)
	}

	if s.IsSelected(norm) {
		s.mu.Lock()
		s.removeSubtree(norm)
		s.mu.Unlock()
		return true, nil
	}

	return s.beginSelectDirectory(ctx, norm)
}

func (s *Set) toggleFile(norm string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paths[norm] {
		delete(s.paths, norm)
		return true, nil
	}
	if len(s.paths)+1 > s.limit {
		return false, model.NewSelectionLimitError(len(s.paths)+1, s.limit)
	}
	s.paths[norm] = true
	return true, nil
}

// absPath resolves a root-relative (or ".") path to an absolute filesystem
// path under the set's root.
func (s *Set) absPath(relPath string) string {
	if relPath == "." || relPath == "" {
		return s.root
	}
	return filepath.Join(s.root, relPath)
}

func (s *Set) beginSelectDirectory(ctx context.Context, dirPath string) (bool, error) {
	absDir := s.absPath(dirPath)

	count, err := walk.CountItems(ctx, walk.CountOptions{
		Root:    absDir,
		Ignorer: s.ignorer,
		Limit:   CountThreshold,
	})
	if err != nil {
		return false, err
	}

	if count <= CountThreshold {
		descendants, err := s.collectDescendants(ctx, absDir, dirPath)
		if err != nil {
			return false, err
		}
		return s.applyCascade(dirPath, descendants)
	}

	opID := s.bumpOp()
	cancel := walk.NewCancelToken()
	s.mu.Lock()
	s.pendingOp = opID
	s.pendingPath = dirPath
	s.cancel = cancel
	s.mu.Unlock()

	go s.runAsyncCascade(ctx, opID, cancel, absDir, dirPath)

	return false, nil
}

func (s *Set) runAsyncCascade(ctx context.Context, opID OperationID, cancel *walk.CancelToken, absDir, dirPath string) {
	cctx, stop := context.WithCancel(ctx)
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-cancel.Done():
			stop()
		case <-done:
		}
	}()

	// Bound the projected total (descendants + the folder itself) at the
	// selection limit before collecting the full descendant list: spec §4.2
	// "returns limit+1 as a sentinel 'exceeded'". Scenario S3 (600 files,
	// limit 400) must surface "401 exceeds limit 400", not the exact 601 --
	// so count with Limit: s.limit-1 (leaving room for the folder itself)
	// and skip the full walk entirely once that bound is exceeded, since the
	// mutation will be rejected regardless of the exact size.
	boundedCount, err := walk.CountItems(cctx, walk.CountOptions{
		Root:    absDir,
		Ignorer: s.ignorer,
		Limit:   s.limit - 1,
	})
	if err != nil {
		return
	}

	if boundedCount > s.limit-1 {
		s.pendingDescendants(opID, nil)
		s.sendCountEvent(opID, dirPath, s.limit+1)
		return
	}

	descendants, err := s.collectDescendants(cctx, absDir, dirPath)
	if err != nil {
		return
	}

	s.pendingDescendants(opID, descendants)

	// count includes dirPath itself alongside its descendants, matching the
	// limit-invariant check the caller performs in ApplyCountResult (e.g.
	// 399 descendants + the folder itself = 400 against a limit of 400; larger
	// subtrees were already reported as limit+1 above).
	s.sendCountEvent(opID, dirPath, len(descendants)+1)
}

// sendCountEvent delivers a count-ready event without blocking. If the
// bounded channel is full, this new event is dropped; events already queued
// are not deduplicated by OperationID.
func (s *Set) sendCountEvent(opID OperationID, dirPath string, count int) {
	select {
	case s.events <- Event{Kind: EventCountReady, OpID: opID, Path: dirPath, Count: count}:
	default:
	}
}

// pendingDescendants stashes the computed descendant list for the caller to
// retrieve via ApplyCountResult once the matching Event is drained, since Event
// itself only carries a count (spec's Event envelope stays small; the
// descendant list travels out-of-band through this lock-protected field).
func (s *Set) pendingDescendants(opID OperationID, descendants []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingOp == opID {
		s.pendingList = descendants
	}
}

// ApplyCountResult applies a background count result, honouring OperationID
// fencing (spec §4.3 "apply_count_result(op_id, count)"): a result whose
// opID no longer matches the set's pending operation is discarded with no
// state change (spec property 4). Otherwise it re-checks the limit using the
// now-known exact count and, if it fits, selects the folder and its
// previously-collected descendants; if it doesn't, the mutation is rejected
// and the caller should surface the returned error as a modal (spec
// scenario S3).
func (s *Set) ApplyCountResult(opID OperationID, count int) (applied bool, err error) {
	s.mu.Lock()
	if opID != s.pendingOp || s.cancel == nil {
		s.mu.Unlock()
		return false, nil
	}
	dirPath := s.pendingPath
	descendants := s.pendingList
	s.pendingList = nil
	s.cancel = nil
	s.mu.Unlock()

	if descendants == nil && count > s.limit {
		// runAsyncCascade already determined the subtree exceeds the limit and
		// skipped collecting the full descendant list; count carries the
		// spec's limit+1 sentinel, so reject directly with it rather than
		// recomputing a projected size from an (empty) descendant list.
		return false, model.NewSelectionLimitError(count, s.limit)
	}

	return s.applyCascade(dirPath, descendants)
}

// applyCascade performs the all-or-nothing limit check and mutation for
// selecting dirPath plus descendants (spec §4.3 "No partial application").
func (s *Set) applyCascade(dirPath string, descendants []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	toAdd := make([]string, 0, len(descendants)+1)
	toAdd = append(toAdd, dirPath)
	toAdd = append(toAdd, descendants...)

	newCount := 0
	for _, p := range toAdd {
		if !s.paths[p] {
			newCount++
		}
	}

	projected := len(s.paths) + newCount
	if projected > s.limit {
		return false, model.NewSelectionLimitError(projected, s.limit)
	}

	for _, p := range toAdd {
		s.paths[p] = true
	}
	return true, nil
}

// collectDescendants walks absDir (rooted at dirPath within the selection's
// root) and returns every non-ignored descendant's root-relative path,
// including subdirectories themselves -- "selecting a directory selects
// every non-ignored descendant" (spec §4.3) covers files and folders alike,
// so is_selected holds for both.
func (s *Set) collectDescendants(ctx context.Context, absDir, dirPath string) ([]string, error) {
	res, err := s.walker.Walk(ctx, walk.Options{
		Root:      absDir,
		Recursive: true,
		Ignorer:   s.ignorer,
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		rel := e.RelPath
		if dirPath != "." {
			rel = dirPath + "/" + e.RelPath
		}
		out = append(out, pathutil.Normalise(rel))
	}
	return out, nil
}
