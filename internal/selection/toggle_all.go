package selection

import (
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/pathutil"
)

// ToggleAll bulk-toggles every path in visible (spec §4.3 "toggle_all
// (visible)" -- the currently displayed/filtered item list). select chooses
// whether the operation selects or deselects the whole set. The mutation is
// all-or-nothing: if selecting would push the set past the limit, nothing in
// visible is added and an error is returned.
//
// visible is always a flattened display list the caller already holds (the
// TUI's filtered tree or a search result), so unlike a directory cascade this
// never needs to walk the filesystem and is always synchronous.
func (s *Set) ToggleAll(visible []string, selectAll bool) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := make([]string, len(visible))
	for i, p := range visible {
		norm[i] = pathutil.Normalise(p)
	}

	if !selectAll {
		for _, p := range norm {
			delete(s.paths, p)
		}
		return true, nil
	}

	newCount := 0
	for _, p := range norm {
		if !s.paths[p] {
			newCount++
		}
	}
	projected := len(s.paths) + newCount
	if projected > s.limit {
		return false, model.NewSelectionLimitError(projected, s.limit)
	}

	for _, p := range norm {
		s.paths[p] = true
	}
	return true, nil
}

// Clear empties the set (spec §4.3 implicit "deselect all").
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = make(map[string]bool)
}
