// Package format implements the four output serialisers (spec §4.4, C4):
// XML, Markdown, JSON, and the LLM-optimised bundle with its tree view and
// import-dependency section. All four share a single tree built from the
// selection (format.go), differing only in how they render it.
package format

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aibundle/aibundle/internal/ignoreengine"
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/pathutil"
)

// Node is one entry in the selection's rendered tree: either a file (with its
// content already read) or a directory holding further Nodes. It plays the
// role of spec §3's Node, but as a concrete owned slice of children rather
// than a parent-linked arena -- this module has no need to walk upward from
// a Node, so the weak-backreference design note (§9) doesn't apply here; it
// matters for AppState's expanded-folder tree instead.
type Node struct {
	Name     string
	RelPath  string
	IsDir    bool
	IsBinary bool
	Content  string
	Size     int64
	Children []*Node
}

// Options configures a formatting pass (spec §4.4's shared formatter
// signature).
type Options struct {
	Root             string
	ShowLineNumbers  bool
	IncludeBinary    bool
	Ignore           model.IgnoreConfig
	ApproxTokens     bool // LLM-only: attempt a tiktoken count in the header
	TokenizerEncName string
}

// Formatter produces one output document plus aggregate CopyStats from a
// built tree. Four concrete formatters share this signature (spec §9
// "Polymorphism over output formats" -- capability-set over tagged enum).
type Formatter interface {
	Format(root *Node, opt Options) (string, model.CopyStats, error)
}

// ForFormat resolves the Formatter for a given enum value.
func ForFormat(f model.OutputFormat) Formatter {
	switch f {
	case model.FormatXML:
		return XML{}
	case model.FormatMarkdown:
		return Markdown{}
	case model.FormatJSON:
		return JSON{}
	default:
		return LLM{}
	}
}

// BuildTree reads selected (a snapshot of a selection.Set's Paths(), a mix of
// file and directory root-relative paths left over from cascade selection)
// and produces the synthetic root's children. Only items that stat as
// regular files contribute content; a cascade-selected directory's own entry
// in selected is never rendered directly -- every one of its non-ignored
// descendant files is already present in selected too (selection cascade
// adds descendants eagerly, spec §4.3), so rebuilding the hierarchy from the
// files' own path components reconstructs every selected folder without
// re-walking the filesystem or special-casing directory entries at all (spec
// §4.4 "process only items whose parent is not also in the selection": a
// directory entry never has content of its own to process, so it is simply
// skipped here in favour of the files beneath it).
func BuildTree(selected []string, root string) (*Node, error) {
	type fileLeaf struct {
		relPath string
		node    *Node
	}

	var leaves []fileLeaf
	for _, p := range selected {
		relPath := pathutil.Normalise(p)
		if relPath == "." {
			continue
		}
		absPath := root
		if relPath != "" {
			if root == "." {
				absPath = relPath
			} else {
				absPath = root + "/" + relPath
			}
		}

		info, err := os.Stat(absPath)
		if err != nil || info.IsDir() {
			continue
		}

		leaves = append(leaves, fileLeaf{relPath: relPath, node: buildFileNode(absPath, relPath)})
	}

	synthetic := &Node{IsDir: true}
	dirs := map[string]*Node{"": synthetic}

	ensureDir := func(relDir string) *Node {
		if n, ok := dirs[relDir]; ok {
			return n
		}
		parentDir, name := splitParent(relDir)
		parent := dirs[parentDir]
		if parent == nil {
			parent = ensureDirRecursive(dirs, parentDir)
		}
		n := &Node{Name: name, RelPath: relDir, IsDir: true}
		dirs[relDir] = n
		parent.Children = append(parent.Children, n)
		return n
	}

	for _, leaf := range leaves {
		parentDir, _ := splitParent(leaf.relPath)
		parent := dirs[parentDir]
		if parent == nil {
			parent = ensureDirChain(dirs, parentDir, ensureDir)
		}
		parent.Children = append(parent.Children, leaf.node)
	}

	sortTree(synthetic)
	return synthetic, nil
}

// splitParent splits relPath into its parent directory ("" for a top-level
// item) and its own base name.
func splitParent(relPath string) (parentDir, name string) {
	idx := strings.LastIndexByte(relPath, '/')
	if idx < 0 {
		return "", relPath
	}
	return relPath[:idx], relPath[idx+1:]
}

// ensureDirChain walks parentDir's own ancestor chain (closest-missing-first)
// creating every intermediate Node, so a deeply nested file never needs its
// intermediate directories to already exist in dirs.
func ensureDirChain(dirs map[string]*Node, relDir string, ensureDir func(string) *Node) *Node {
	if relDir == "" {
		return dirs[""]
	}
	var missing []string
	for d := relDir; d != "" && dirs[d] == nil; {
		missing = append(missing, d)
		d, _ = splitParent(d)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		ensureDir(missing[i])
	}
	return dirs[relDir]
}

func ensureDirRecursive(dirs map[string]*Node, relDir string) *Node {
	return ensureDirChain(dirs, relDir, func(d string) *Node {
		parentDir, name := splitParent(d)
		parent := dirs[parentDir]
		n := &Node{Name: name, RelPath: d, IsDir: true}
		dirs[d] = n
		parent.Children = append(parent.Children, n)
		return n
	})
}

func buildFileNode(absPath, relPath string) *Node {
	node := &Node{Name: pathutil.SplitName(relPath), RelPath: relPath}

	if ignoreengine.IsBinary(absPath) {
		node.IsBinary = true
		if info, err := os.Stat(absPath); err == nil {
			node.Size = info.Size()
		}
		return node
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		node.IsBinary = true
		return node
	}

	node.Content = string(content)
	node.Size = int64(len(content))
	return node
}

func sortTree(n *Node) {
	sortNodes(n.Children)
	for _, c := range n.Children {
		if c.IsDir {
			sortTree(c)
		}
	}
}

// sortNodes implements spec §3's DisplayItem order: directories first, then
// case-insensitive name.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
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

// numberLines prefixes each line with a 1-indexed "%6d | " column per spec
// §4.4 ("never JSON").
func numberLines(content string) string {
	if content == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	trailingNL := strings.HasSuffix(content, "\n")
	if trailingNL {
		lines = lines[:len(lines)-1]
	}
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%6d | %s\n", i+1, line)
	}
	out := b.String()
	if !trailingNL {
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}
