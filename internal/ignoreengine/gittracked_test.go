package ignoreengine

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// initGitRepo creates a git repository at root, adds the given files, and
// commits them so `git ls-files` reports them as tracked.
func initGitRepo(t *testing.T, root string, files ...string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	run(append([]string{"add"}, files...)...)
	run("commit", "-q", "-m", "initial")
}

func TestGitTrackedFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not on PATH")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tracked.txt"), "t")
	writeFile(t, filepath.Join(root, "untracked.txt"), "u")
	initGitRepo(t, root, "tracked.txt")

	tracked, err := GitTrackedFiles(root)
	require.NoError(t, err)
	require.True(t, tracked["tracked.txt"])
	require.False(t, tracked["untracked.txt"])
}

func TestGitTrackedAbsSet(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not on PATH")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "tracked.txt"), "t")
	initGitRepo(t, root, filepath.Join("sub", "tracked.txt"))

	abs, err := GitTrackedAbsSet(root)
	require.NoError(t, err)
	require.True(t, abs[filepath.Join(root, "sub", "tracked.txt")])
}

func TestGitTrackedFiles_NotARepo(t *testing.T) {
	root := t.TempDir()
	_, err := GitTrackedFiles(root)
	require.Error(t, err)
}
