// Package walk implements the iterative traversal engine (spec §4.2, C2):
// explicit work-stack directory walk, symlink-loop guard, per-directory
// ignore filtering and sort, and a 5-minute-TTL listing cache. It never
// recurses -- the call stack depth is bounded regardless of tree depth.
package walk

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aibundle/aibundle/internal/ignoreengine"
	"github.com/aibundle/aibundle/internal/pathutil"
)

// Entry is one emitted traversal result (spec §4.2 step 5).
type Entry struct {
	AbsPath   string
	RelPath   string
	Name      string
	IsDir     bool
	IsSymlink bool
	Size      int64
	Depth     int
}

// SkipReason records why an entry was excluded from the walk result, per
// spec §4.2's "failure semantics: per-entry errors are aggregated but do not
// abort the walk".
type SkipReason struct {
	Path   string
	Reason string
}

// Result is the aggregate output of one Walk call.
type Result struct {
	Entries []Entry
	Skipped []SkipReason
}

// Options configures one traversal.
type Options struct {
	Root      string
	Ignorer   ignoreengine.Ignorer
	Binary    func(path string) bool // nil disables binary detection
	Recursive bool
	// Expanded reports whether a directory (by root-relative path) should be
	// descended into when Recursive is false -- the TUI's per-folder expand
	// state (spec §3 AppState.expanded folder set).
	Expanded func(relPath string) bool
	Cache    *Cache // optional per-directory listing cache
	// GitTracked, when non-nil, restricts emitted files to those whose
	// absolute path is present in the set (SPEC_FULL.md §3
	// --git-tracked-only; see ignoreengine.GitTrackedAbsSet). Keyed by
	// absolute path rather than a path relative to this call's Root, since
	// Root may itself be a subdirectory of the repository root. Directories
	// are never filtered by this set: every directory is still emitted and
	// descended into as usual, so an untracked directory full of tracked
	// files (rare, but possible with a partial git add) still surfaces its
	// tracked children.
	GitTracked map[string]bool
	// MaxFileSize skips files larger than this many bytes, silently like
	// the ignore and binary filters (no SkipReason is recorded); 0 disables
	// the check (SPEC_FULL.md §3 --skip-large-files).
	MaxFileSize int64
}

// Walker performs traversals. It holds no per-call mutable state so a single
// Walker may be reused (and its Cache shared) across many Walk calls.
type Walker struct {
	logger *slog.Logger
}

// New creates a Walker.
func New() *Walker {
	return &Walker{logger: slog.Default().With("component", "walk")}
}

type stackFrame struct {
	absPath string
	relPath string
	depth   int
}

// Walk performs the iterative traversal described in spec §4.2. ctx
// cancellation is checked at each popped stack frame.
func (w *Walker) Walk(ctx context.Context, opt Options) (*Result, error) {
	root, err := filepath.Abs(opt.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", opt.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	result := &Result{}
	visited := newLoopGuard()

	stack := []stackFrame{{absPath: root, relPath: ".", depth: 0}}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := w.listDir(frame.absPath, frame.relPath, opt)
		if err != nil {
			if os.IsPermission(err) {
				w.logger.Debug("permission denied", "path", frame.relPath)
				result.Skipped = append(result.Skipped, SkipReason{Path: frame.relPath, Reason: "permission_denied"})
				continue
			}
			return nil, fmt.Errorf("reading directory %s: %w", frame.relPath, err)
		}

		for _, entry := range children {
			if entry.IsSymlink {
				real, isLoop, err := visited.resolve(entry.AbsPath)
				if err != nil {
					result.Skipped = append(result.Skipped, SkipReason{Path: entry.RelPath, Reason: "symlink_error"})
					continue
				}
				if isLoop {
					result.Skipped = append(result.Skipped, SkipReason{Path: entry.RelPath, Reason: "symlink_loop"})
					continue
				}
				visited.markVisited(real)
			}

			result.Entries = append(result.Entries, entry)

			if entry.IsDir {
				descend := opt.Recursive
				if !descend && opt.Expanded != nil {
					descend = opt.Expanded(entry.RelPath)
				}
				if descend {
					stack = append(stack, stackFrame{absPath: entry.AbsPath, relPath: entry.RelPath, depth: entry.Depth + 1})
				}
			}
		}
	}

	return result, nil
}

// listDir reads, filters, and sorts one directory's children, consulting the
// cache if present (spec §4.2 step 4: "sort is done once per directory").
func (w *Walker) listDir(absDir, relDir string, opt Options) ([]Entry, error) {
	if opt.Cache != nil {
		if cached, ok := opt.Cache.Get(absDir); ok {
			return cached, nil
		}
	}

	raw, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raw))
	for _, de := range raw {
		name := de.Name()
		absPath := filepath.Join(absDir, name)
		relPath := name
		if relDir != "." {
			relPath = relDir + "/" + name
		}
		relPath = pathutil.Normalise(relPath)

		isSymlink := de.Type()&os.ModeSymlink != 0
		isDir := de.IsDir()
		if isSymlink {
			if target, err := os.Stat(absPath); err == nil {
				isDir = target.IsDir()
			}
		}

		if opt.Ignorer != nil && opt.Ignorer.IsIgnored(relPath, absDir, isDir) {
			continue
		}

		// GitTracked restricts files, not directories: an untracked directory
		// may still contain tracked files deeper in the tree, so it must stay
		// descendable (SPEC_FULL.md §3 --git-tracked-only).
		if !isDir && opt.GitTracked != nil && !opt.GitTracked[absPath] {
			continue
		}

		var size int64
		if !isDir {
			if info, err := de.Info(); err == nil {
				size = info.Size()
			}
			if opt.MaxFileSize > 0 && size > opt.MaxFileSize {
				continue
			}
			if !isSymlink && opt.Binary != nil && opt.Binary(absPath) {
				continue
			}
		}

		entries = append(entries, Entry{
			AbsPath:   absPath,
			RelPath:   relPath,
			Name:      name,
			IsDir:     isDir,
			IsSymlink: isSymlink,
			Size:      size,
			Depth:     pathutil.Depth(relPath),
		})
	}

	sortEntries(entries)

	if opt.Cache != nil {
		opt.Cache.Put(absDir, entries)
	}

	return entries, nil
}

// sortEntries implements spec §3 DisplayItem ordering: directories first
// (case-insensitive name), then files (case-insensitive name).
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		al, bl := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if al != bl {
			return al < bl
		}
		return a.Name < b.Name
	})
}
