package ignoreengine

import (
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
)

// extraMatcher evaluates model.IgnoreConfig.ExtraPatterns: spec §4.1 step 2
// says "exact name or glob". Grounded on the teacher's discovery.PatternFilter
// exclude half, but simplified to the single OR-of-patterns rule spec.md asks
// for (PatternFilter's include/exclude/extension combination logic has no
// analogue in spec.md's ExtraPatterns).
type extraMatcher struct {
	literal map[string]bool
	globs   []string
	logger  *slog.Logger
}

func newExtraMatcher(patterns []string, logger *slog.Logger) *extraMatcher {
	m := &extraMatcher{literal: make(map[string]bool)}
	m.logger = logger
	for _, p := range patterns {
		if isLiteralName(p) {
			m.literal[p] = true
			continue
		}
		// Validate the glob eagerly so a malformed pattern is reported once
		// at construction time rather than silently on every lookup.
		if _, err := doublestar.Match(p, "probe"); err != nil {
			logger.Warn("ignoring invalid extra pattern", "pattern", p, "error", err)
			continue
		}
		m.globs = append(m.globs, p)
	}
	return m
}

// isLiteralName reports whether p contains no glob metacharacters, meaning it
// should be compared as an exact file name rather than matched as a pattern.
func isLiteralName(p string) bool {
	for _, r := range p {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			return false
		}
	}
	return true
}

// Match reports whether name (base name) or normPath (full normalised
// relative path) matches any extra pattern.
func (m *extraMatcher) Match(name, normPath string) bool {
	if m.literal[name] {
		return true
	}
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, normPath); ok {
			return true
		}
	}
	return false
}
