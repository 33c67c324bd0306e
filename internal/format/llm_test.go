package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S6: {main.py: "import util", util.py: ""} -> util.py listed as an internal
// dependency of main.py; main.py's external list is empty.
func TestLLM_DependencySection_ResolvesInternalImport(t *testing.T) {
	root := mkTree(t, map[string]string{
		"main.py": "import util\n",
		"util.py": "",
	})

	tree, err := BuildTree([]string{"main.py", "util.py"}, root)
	require.NoError(t, err)

	out, _, err := LLM{}.Format(tree, Options{Root: root})
	require.NoError(t, err)
	require.Contains(t, out, "## Dependencies")
	require.Contains(t, out, "- main.py")
	require.Contains(t, out, "internal: util.py")
	require.NotContains(t, out, "external:")
}

func TestLLM_DependencySection_UnresolvedImportIsExternal(t *testing.T) {
	root := mkTree(t, map[string]string{
		"main.py": "import requests\n",
	})

	tree, err := BuildTree([]string{"main.py"}, root)
	require.NoError(t, err)

	out, _, err := LLM{}.Format(tree, Options{Root: root})
	require.NoError(t, err)
	require.Contains(t, out, "external: requests")
}

func TestLLM_TreeView_UsesBoxDrawingGlyphs(t *testing.T) {
	root := mkTree(t, map[string]string{
		"a/x.rs": "fn x() {}\n",
		"a/y.rs": "fn y() {}\n",
		"b.rs":   "fn b() {}\n",
	})

	tree, err := BuildTree([]string{"a/x.rs", "a/y.rs", "b.rs"}, root)
	require.NoError(t, err)

	out, _, err := LLM{}.Format(tree, Options{Root: root})
	require.NoError(t, err)
	require.Contains(t, out, "├── a/\n")
	require.Contains(t, out, "└── b.rs\n")
	require.Contains(t, out, "│   ├── x.rs\n")
	require.Contains(t, out, "│   └── y.rs\n")
}

func TestLLM_Header_ReportsFileCountAndLanguages(t *testing.T) {
	root := mkTree(t, map[string]string{
		"a.go": "package a\n",
		"b.go": "package b\n",
		"c.rs": "fn c() {}\n",
	})

	tree, err := BuildTree([]string{"a.go", "b.go", "c.rs"}, root)
	require.NoError(t, err)

	out, _, err := LLM{}.Format(tree, Options{Root: root})
	require.NoError(t, err)
	require.Contains(t, out, "Files: 3")
	require.Contains(t, out, "Go (2)")
	require.Contains(t, out, "Rust (1)")
}

func TestLLM_PerFileSection_BinaryPlaceholder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0x00, 0x01, 0x02, 0xff, 0x00, 0x00}, 0o644))

	tree, err := BuildTree([]string{"blob.bin"}, root)
	require.NoError(t, err)

	out, _, err := LLM{}.Format(tree, Options{Root: root})
	require.NoError(t, err)
	require.Contains(t, out, "<binary file>")
}
