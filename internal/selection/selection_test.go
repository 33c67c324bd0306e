package selection

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aibundle/aibundle/internal/ignoreengine"
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/walk"
)

func mkTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newSet(t *testing.T, root string, limit int) *Set {
	t.Helper()
	eng := ignoreengine.New(root, model.DefaultIgnoreConfig())
	return New(root, walk.New(), eng, limit)
}

// Property 2: for every non-ignored descendant d of a toggled directory,
// is_selected(d) == is_selected(dir) after the toggle.
func TestToggle_CascadeSelectAndDeselect(t *testing.T) {
	root := mkTree(t, map[string]string{
		"dir/a.txt":     "a",
		"dir/b.txt":     "b",
		"dir/sub/c.txt": "c",
	})
	s := newSet(t, root, 400)

	applied, err := s.Toggle(context.Background(), "dir", true)
	require.NoError(t, err)
	require.True(t, applied)

	for _, p := range []string{"dir", "dir/a.txt", "dir/b.txt", "dir/sub", "dir/sub/c.txt"} {
		require.True(t, s.IsSelected(p), p)
	}

	applied, err = s.Toggle(context.Background(), "dir", true)
	require.NoError(t, err)
	require.True(t, applied)

	for _, p := range []string{"dir", "dir/a.txt", "dir/b.txt", "dir/sub", "dir/sub/c.txt"} {
		require.False(t, s.IsSelected(p), p)
	}
}

// Property 3: |selection| <= selection_limit at every observable moment.
// Scenario S3: 600 files under big/, selection_limit=400 -- selecting big/
// must be rejected with "401 exceeds limit 400" and leave the set unchanged.
func TestToggle_LimitRejectedWhenExceeded(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 600; i++ {
		files[filepath.Join("big", fmt.Sprintf("f%03d.txt", i))] = "x"
	}
	root := mkTree(t, files)
	s := newSet(t, root, 400)

	applied, err := s.Toggle(context.Background(), "big", true)
	require.False(t, applied)

	if err != nil {
		// Synchronous rejection path (count computed eagerly above threshold).
		require.Contains(t, err.Error(), "401 exceeds limit 400")
		require.Equal(t, 0, s.Len())
		return
	}

	// Async path: drain the EventCountReady result and apply it.
	ev := <-s.Events()
	require.Equal(t, EventCountReady, ev.Kind)
	require.Equal(t, 401, ev.Count)

	applied, err = s.ApplyCountResult(ev.OpID, ev.Count)
	require.False(t, applied)
	require.Error(t, err)
	require.Contains(t, err.Error(), "401 exceeds limit 400")
	require.Equal(t, 0, s.Len())
}

// Property 4: applying a count result whose id is stale yields no state change.
func TestApplyCountResult_StaleOperationIDDiscarded(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 600; i++ {
		files[filepath.Join("big", fmt.Sprintf("f%03d.txt", i))] = "x"
	}
	root := mkTree(t, files)
	s := newSet(t, root, 1000)

	applied, err := s.Toggle(context.Background(), "big", true)
	require.NoError(t, err)
	require.False(t, applied, "600 > CountThreshold, so select must start async")

	staleOp, ok := s.PendingCount()
	require.True(t, ok)

	// Cancelling bumps the current OperationID, making staleOp stale.
	s.CancelPending()

	applied, err = s.ApplyCountResult(staleOp, 601)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, 0, s.Len())
}

func TestToggle_FileLimitRejectedLeavesSetUnchanged(t *testing.T) {
	root := mkTree(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	s := newSet(t, root, 1)

	applied, err := s.Toggle(context.Background(), "a.txt", false)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = s.Toggle(context.Background(), "b.txt", false)
	require.False(t, applied)
	require.Error(t, err)
	require.Equal(t, 1, s.Len())
	require.True(t, s.IsSelected("a.txt"))
}

func TestToggleAll_BulkSelectAllOrNothing(t *testing.T) {
	root := mkTree(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	s := newSet(t, root, 2)

	applied, err := s.ToggleAll([]string{"a.txt", "b.txt", "c.txt"}, true)
	require.False(t, applied)
	require.Error(t, err)
	require.Equal(t, 0, s.Len())

	applied, err = s.ToggleAll([]string{"a.txt", "b.txt"}, true)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 2, s.Len())

	applied, err = s.ToggleAll([]string{"a.txt", "b.txt"}, false)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 0, s.Len())
}
