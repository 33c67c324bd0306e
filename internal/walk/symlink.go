package walk

import (
	"os"
	"path/filepath"
	"sync"
)

// loopGuard detects symlink cycles during a single traversal. It tracks both
// the canonical (EvalSymlinks-resolved) path set, for ordinary loops, and the
// raw path set, for dangling symlinks that point back into an already-walked
// subtree but cannot be resolved to a canonical target (spec §4.2 step 2:
// "also track the original path set to catch loops that canonicalisation
// can't resolve"). Grounded on the teacher's discovery.SymlinkResolver, with
// the raw-path fallback added per spec.
type loopGuard struct {
	mu       sync.Mutex
	resolved map[string]bool
	raw      map[string]bool
}

func newLoopGuard() *loopGuard {
	return &loopGuard{
		resolved: make(map[string]bool),
		raw:      make(map[string]bool),
	}
}

// resolve reports the canonical path for absPath, whether it forms a loop,
// and any error resolving it (e.g. a dangling symlink). When EvalSymlinks
// fails, the raw path itself is checked against the raw-visited set so a
// symlink whose target cannot be statted, but which structurally revisits an
// already-seen path, is still caught.
func (g *loopGuard) resolve(absPath string) (real string, isLoop bool, err error) {
	g.mu.Lock()
	if g.raw[absPath] {
		g.mu.Unlock()
		return absPath, true, nil
	}
	g.mu.Unlock()

	resolved, evalErr := filepath.EvalSymlinks(absPath)
	if evalErr != nil {
		g.mu.Lock()
		g.raw[absPath] = true
		g.mu.Unlock()
		if os.IsNotExist(evalErr) {
			return "", false, evalErr
		}
		return "", false, evalErr
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolved[resolved] {
		return resolved, true, nil
	}
	return resolved, false, nil
}

func (g *loopGuard) markVisited(real string) {
	g.mu.Lock()
	g.resolved[real] = true
	g.raw[real] = true
	g.mu.Unlock()
}
