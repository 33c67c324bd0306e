// Package ignoreengine implements the path & ignore evaluation rules of
// spec §4.1 (C1): default ignores, extra glob patterns, and a gitignore
// matcher cache keyed by ignore-context directory rather than by traversal
// root. It also implements binary-file detection.
package ignoreengine

import (
	"log/slog"
	"path/filepath"

	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/pathutil"
)

// DefaultIgnoreNames is spec §4.1 step 1's exact built-in set. The teacher's
// discovery.DefaultIgnorePatterns carries a larger list (lock files,
// certificates, editor metadata); none of it is carried over. A "default"
// entry in the ignore list (e.g. "--ignore default") only turns this set on
// via IgnoreConfig.UseDefaultIgnores; it adds no extra patterns.
var DefaultIgnoreNames = []string{
	"node_modules",
	".git",
	"dist",
	"build",
	"coverage",
	"target",
}

// Engine evaluates is_ignored/is_binary/normalise for one traversal. It holds
// no mutable traversal state beyond the gitignore cache, so a single Engine
// may be shared by concurrent async counters (spec §4.3's background
// counters) as long as they do not mutate cfg.ExtraPatterns concurrently —
// IgnoreConfig is immutable during a traversal per spec §3.
type Engine struct {
	root    string
	cfg     model.IgnoreConfig
	extra   *extraMatcher
	gitCach *GitignoreCache
	logger  *slog.Logger
}

// New builds an Engine rooted at root with the given config. extra-pattern
// compilation errors degrade to "pattern never matches" with a one-shot log
// event, per spec §4.1's error-degradation rule; InvalidPattern is only
// returned for patterns that cannot be parsed as either a literal name or a
// glob at all (effectively never, given doublestar's permissive grammar), so
// New itself never fails.
func New(root string, cfg model.IgnoreConfig) *Engine {
	logger := slog.Default().With("component", "ignoreengine")
	e := &Engine{
		root:   filepath.Clean(root),
		cfg:    cfg,
		extra:  newExtraMatcher(cfg.ExtraPatterns, logger),
		logger: logger,
	}
	if cfg.UseGitignore {
		e.gitCach = NewGitignoreCache(e.root)
	}
	return e
}

// IsIgnored implements spec §4.1's first-match-wins evaluation order.
// ignoreContextDir is the *file's own directory* (spec: "the file's own
// directory, not the traversal root"), relative or absolute in the same form
// as root.
func (e *Engine) IsIgnored(path, ignoreContextDir string, isDir bool) bool {
	name := pathutil.SplitName(path)

	if e.cfg.UseDefaultIgnores {
		for _, n := range DefaultIgnoreNames {
			if name == n {
				return true
			}
		}
	}

	if e.extra.Match(name, pathutil.Normalise(path)) {
		return true
	}

	if e.cfg.UseGitignore && e.gitCach != nil {
		matcher := e.gitCach.ForContext(ignoreContextDir)
		if matcher.IsIgnored(path, isDir) {
			return true
		}
	}

	return false
}

// Config returns a copy of the engine's immutable configuration.
func (e *Engine) Config() model.IgnoreConfig {
	return e.cfg
}

// Refresh drops all cached gitignore matchers, forcing the next IsIgnored
// call to recompile from disk (spec §4.1: "invalidated when any .gitignore
// under the root changes or on explicit refresh").
func (e *Engine) Refresh() {
	if e.gitCach != nil {
		e.gitCach.Clear()
	}
}

// Ignorer is the narrow interface downstream packages (walk, selection)
// depend on, so they never need to import model.IgnoreConfig directly.
type Ignorer interface {
	IsIgnored(path, ignoreContextDir string, isDir bool) bool
}

var _ Ignorer = (*Engine)(nil)
