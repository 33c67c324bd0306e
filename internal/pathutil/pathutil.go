// Package pathutil provides the single normalisation routine every other
// aibundle package relies on for path comparisons and output emission (spec
// §3 "Path"). Centralising it avoids the teacher's pattern of re-deriving the
// same ToSlash/TrimPrefix logic in every ignore matcher.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalise converts path to its external, forward-slashed form with no
// leading "./". It performs no filesystem access and is safe to call on
// paths that no longer exist.
func Normalise(path string) string {
	p := filepath.ToSlash(path)
	p = strings.TrimPrefix(p, "./")
	if p == "." {
		return "."
	}
	return p
}

// RelativeTo returns path relative to root, normalised to forward slashes.
// When root is "." and path is already relative, strip-prefix falls back to
// identity (spec §4.4 "Path emission").
func RelativeTo(root, path string) string {
	root = filepath.Clean(root)
	path = filepath.Clean(path)

	if root == "." {
		if !filepath.IsAbs(path) {
			return Normalise(path)
		}
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Normalise(path)
	}
	return Normalise(rel)
}

// IsAncestor reports whether ancestor is a strict ancestor directory of path,
// both given as normalised (forward-slash) relative or absolute paths in the
// same form. Used to enforce the SelectionSet invariant that no path whose
// ancestor is also present is added implicitly (spec §3).
func IsAncestor(ancestor, path string) bool {
	if ancestor == path {
		return false
	}
	a := strings.TrimSuffix(Normalise(ancestor), "/")
	p := Normalise(path)
	return strings.HasPrefix(p, a+"/")
}

// SplitName returns the base name of a normalised path.
func SplitName(path string) string {
	p := Normalise(path)
	if p == "." || p == "" {
		return p
	}
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// Depth returns the number of path segments relative to root ("" or "."
// yields 0).
func Depth(relPath string) int {
	p := Normalise(relPath)
	if p == "" || p == "." {
		return 0
	}
	return strings.Count(p, "/") + 1
}
