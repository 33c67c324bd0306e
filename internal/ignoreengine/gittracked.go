package ignoreengine

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
)

// GitTrackedFiles runs `git ls-files` in root and returns the set of
// root-relative paths Git tracks, for the supplemented --git-tracked-only
// flag (SPEC_FULL.md §3). Keys are normalised with forward slashes, matching
// Git's own porcelain output on every platform.
//
// Errors (root is not a Git repository, git not on PATH) are returned to the
// caller rather than degraded here, so that GitTrackedOnly callers can choose
// between aborting and falling back per spec §4.1's "all other errors
// degrade... with a one-shot log event" policy.
func GitTrackedFiles(root string) (map[string]bool, error) {
	cmd := exec.Command("git", "ls-files")
	cmd.Dir = root

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed in %s: %w (is this a git repository?)", root, err)
	}

	files := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			files[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git ls-files output: %w", err)
	}

	return files, nil
}

// GitTrackedAbsSet is GitTrackedFiles with every key rewritten to an absolute
// path under root. walk.Options.GitTracked is keyed by Entry.AbsPath rather
// than a root-relative path, since a single traversal root passed to
// walk.Walker.Walk may itself be a subdirectory of the repository root the
// TUI user is currently browsing (spec's AppState.current_directory) -- an
// absolute-path key is the one coordinate space every subtree walk shares.
func GitTrackedAbsSet(root string) (map[string]bool, error) {
	rel, err := GitTrackedFiles(root)
	if err != nil {
		return nil, err
	}
	abs := make(map[string]bool, len(rel))
	for r := range rel {
		abs[filepath.Join(root, filepath.FromSlash(r))] = true
	}
	return abs, nil
}
