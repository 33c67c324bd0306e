package format

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/tokenizer"
)

// LLM renders the header/tree/dependency/per-file bundle described by spec
// §4.4's "interesting one" -- the format an LLM consumer is expected to read
// end to end, with enough structure (language mix, import graph) that a
// model doesn't have to re-derive it from raw file contents.
type LLM struct{}

func (LLM) Format(root *Node, opt Options) (string, model.CopyStats, error) {
	files := collectFiles(root)

	var b strings.Builder
	writeHeader(&b, root, files, opt)
	b.WriteString("\n")
	writeTree(&b, root)
	b.WriteString("\n")

	graph := buildImportGraph(files)
	writeDependencySection(&b, files, graph)
	b.WriteString("\n")

	stats := writePerFileSections(&b, files, graph, opt)
	stats.Folders = countDirs(root)
	return b.String(), stats, nil
}

func countDirs(n *Node) int {
	count := 0
	for _, c := range n.Children {
		if c.IsDir {
			count++
			count += countDirs(c)
		}
	}
	return count
}

// collectFiles flattens the tree into its file leaves, in the same
// directories-first, name-sorted order the tree itself is rendered in, so
// the per-file section reads in the same order as the tree view above it.
func collectFiles(n *Node) []*Node {
	var files []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if c.IsDir {
				walk(c)
			} else {
				files = append(files, c)
			}
		}
	}
	walk(n)
	return files
}

// --- 1. Header -------------------------------------------------------------

// languageNames maps a file extension (without the dot) to a friendly
// language label for the header's "top 5 languages" line.
var languageNames = map[string]string{
	"go":    "Go",
	"rs":    "Rust",
	"py":    "Python",
	"js":    "JavaScript",
	"jsx":   "JavaScript",
	"ts":    "TypeScript",
	"tsx":   "TypeScript",
	"java":  "Java",
	"c":     "C",
	"h":     "C",
	"cc":    "C++",
	"cpp":   "C++",
	"hpp":   "C++",
	"rb":    "Ruby",
	"php":   "PHP",
	"swift": "Swift",
	"sh":    "Shell",
	"bash":  "Shell",
	"md":    "Markdown",
	"json":  "JSON",
	"yaml":  "YAML",
	"yml":   "YAML",
	"toml":  "TOML",
	"html":  "HTML",
	"css":   "CSS",
	"sql":   "SQL",
}

func writeHeader(b *strings.Builder, root *Node, files []*Node, opt Options) {
	b.WriteString("# Context Bundle\n\n")
	fmt.Fprintf(b, "Project: %s\n", normaliseProjectPath(opt.Root))
	fmt.Fprintf(b, "Files: %d\n", len(files))
	fmt.Fprintf(b, "Selected: %d\n", len(files))

	if langs := topLanguages(files, 5); len(langs) > 0 {
		fmt.Fprintf(b, "Languages: %s\n", strings.Join(langs, ", "))
	}

	if opt.ApproxTokens {
		if count, ok := approxTokenCount(files, opt.TokenizerEncName); ok {
			fmt.Fprintf(b, "Approx tokens (%s): %d\n", tokenizerLabel(opt.TokenizerEncName), count)
		}
	}
}

func normaliseProjectPath(root string) string {
	if root == "" {
		return "."
	}
	return root
}

func tokenizerLabel(name string) string {
	if name == "" {
		return tokenizer.NameCL100K
	}
	return name
}

// approxTokenCount degrades gracefully: a tokenizer that fails to initialise
// (e.g. no network access to fetch a BPE dictionary on first use) simply
// omits the header line rather than failing the whole format call.
func approxTokenCount(files []*Node, encName string) (int, bool) {
	t, err := tokenizer.NewTokenizer(encName)
	if err != nil {
		return 0, false
	}
	counter := tokenizer.NewTokenCounter(t)
	contents := make([]*tokenizer.FileContent, 0, len(files))
	for _, f := range files {
		if f.IsBinary {
			continue
		}
		contents = append(contents, &tokenizer.FileContent{Path: f.RelPath, Content: f.Content})
	}
	total, err := counter.CountFiles(context.Background(), contents)
	if err != nil {
		return 0, false
	}
	return total + counter.EstimateOverhead(len(contents)), true
}

func topLanguages(files []*Node, n int) []string {
	counts := map[string]int{}
	for _, f := range files {
		ext := strings.TrimPrefix(path.Ext(f.RelPath), ".")
		name, ok := languageNames[strings.ToLower(ext)]
		if !ok {
			continue
		}
		counts[name]++
	}

	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%s (%d)", e.name, e.count)
	}
	return out
}

// --- 2. Tree view ------------------------------------------------------------

// writeTree renders the selection with box-drawing glyphs, grounded on
// quantmind-br-shotgun-cli's TreeRenderer: last-child detection decides
// between "├── "/"└── " and accumulates a running prefix of "│   "/"    "
// for each ancestor depth.
func writeTree(b *strings.Builder, root *Node) {
	b.WriteString("## Structure\n\n")
	for i, c := range root.Children {
		writeTreeNode(b, c, "", i == len(root.Children)-1)
	}
}

func writeTreeNode(b *strings.Builder, n *Node, prefix string, last bool) {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	name := n.Name
	if n.IsDir {
		name += "/"
	}
	fmt.Fprintf(b, "%s%s%s\n", prefix, connector, name)

	for i, c := range n.Children {
		writeTreeNode(b, c, childPrefix, i == len(n.Children)-1)
	}
}

// --- 3. Dependency extraction ------------------------------------------------

// importPattern pairs a language family with its import regex, one per
// language family named in spec §4.4; every non-empty capture group of a
// match is taken as a raw import token.
type importPattern struct {
	lang string
	re   *regexp.Regexp
}

var importPatterns = []importPattern{
	{"python", regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)},
	{"c", regexp.MustCompile(`(?m)^\s*#include\s*[<"]([^>"]+)[>"]`)},
	{"js", regexp.MustCompile(`(?m)(?:import\s+(?:[\w*{}\s,]+\s+from\s+)?|require\()\s*['"]([^'"]+)['"]`)},
	{"rust", regexp.MustCompile(`(?m)^\s*(?:use\s+([\w:]+)|extern\s+crate\s+(\w+))`)},
	{"java", regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+)\s*;`)},
	{"go", regexp.MustCompile(`(?m)^\s*(?:import\s+)?"([^"]+)"`)},
	{"ruby", regexp.MustCompile(`(?m)^\s*require(?:_relative)?\s+['"]([^'"]+)['"]`)},
	{"php", regexp.MustCompile(`(?m)^\s*(?:use\s+([\w\\]+)|require(?:_once)?\s*\(?\s*['"]([^'"]+)['"])`)},
	{"swift", regexp.MustCompile(`(?m)^\s*import\s+(\w+)`)},
	{"shell", regexp.MustCompile(`(?m)^\s*(?:source|\.)\s+([^\s;]+)`)},
	{"make", regexp.MustCompile(`(?m)^\s*include\s+([^\s]+)`)},
}

// extFamilies narrows which patterns apply to a file, avoiding false matches
// (e.g. running the C #include pattern against a Python file's comments).
var extFamilies = map[string]string{
	"py": "python", "c": "c", "h": "c", "cc": "c", "cpp": "c", "hpp": "c",
	"js": "js", "jsx": "js", "ts": "js", "tsx": "js",
	"rs": "rust", "java": "java", "go": "go",
	"rb": "ruby", "php": "php", "swift": "swift",
	"sh": "shell", "bash": "shell",
}

// importGraph maps each selected file's RelPath to the list of other
// selected files it imports (internal) and the raw tokens it could not
// resolve (external).
type importGraph struct {
	internal map[string][]string // RelPath -> []RelPath
	external map[string][]string // RelPath -> []raw token
	importedBy map[string]int    // RelPath -> count of internal importers
}

// extracted holds one file's raw import tokens, gathered concurrently
// before the sequential merge into importGraph below.
type extracted struct {
	relPath string
	family  string
	tokens  []string
}

func buildImportGraph(files []*Node) *importGraph {
	g := &importGraph{
		internal:   map[string][]string{},
		external:   map[string][]string{},
		importedBy: map[string]int{},
	}

	nameIndex := buildNameIndex(files)
	results := make([]extracted, len(files))

	// Regex extraction is pure CPU work per file with no shared state, so it
	// is bounded across cores rather than run one file at a time -- the same
	// pattern the tokenizer package uses for per-file token counting.
	g2, _ := errgroup.WithContext(context.Background())
	g2.SetLimit(runtime.NumCPU())
	for i, f := range files {
		i, f := i, f
		g2.Go(func() error {
			if f.IsBinary {
				return nil
			}
			family, ok := extFamilies[strings.ToLower(strings.TrimPrefix(path.Ext(f.RelPath), "."))]
			if !ok {
				return nil
			}
			results[i] = extracted{relPath: f.RelPath, family: family, tokens: extractImports(f.Content, family)}
			return nil
		})
	}
	_ = g2.Wait() // extraction never returns an error; Wait only joins the goroutines

	for _, r := range results {
		for _, tok := range r.tokens {
			if resolved, ok := resolveImport(tok, r.family, nameIndex); ok && resolved != r.relPath {
				g.internal[r.relPath] = append(g.internal[r.relPath], resolved)
				g.importedBy[resolved]++
				continue
			}
			g.external[r.relPath] = append(g.external[r.relPath], tok)
		}
	}

	for k := range g.internal {
		g.internal[k] = dedupStable(g.internal[k])
	}
	for k := range g.external {
		g.external[k] = dedupStable(g.external[k])
	}
	return g
}

func extractImports(content, family string) []string {
	var tokens []string
	for _, p := range importPatterns {
		if p.lang != family {
			continue
		}
		for _, m := range p.re.FindAllStringSubmatch(content, -1) {
			for _, g := range m[1:] {
				if g != "" {
					tokens = append(tokens, g)
				}
			}
		}
	}
	return tokens
}

// buildNameIndex indexes selected files under every variation an import
// token might use: the full RelPath, the base name, the stem (base name
// without extension), and the RelPath without its extension. Dotted tokens
// ("x.y.z") are turned into slashed form by resolveImport, not indexed here.
func buildNameIndex(files []*Node) map[string]string {
	index := map[string]string{}
	add := func(key, relPath string) {
		if key == "" {
			return
		}
		if _, exists := index[key]; !exists {
			index[key] = relPath
		}
	}

	for _, f := range files {
		add(f.RelPath, f.RelPath)
		base := path.Base(f.RelPath)
		add(base, f.RelPath)
		ext := path.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		add(stem, f.RelPath)
		add(strings.TrimSuffix(f.RelPath, ext), f.RelPath)
	}
	return index
}

// resolveImport tries the variations spec §4.4 names: the raw token as
// given, its final path segment, its dotted-to-slashed form, and each with
// the importing language's conventional extension appended.
func resolveImport(token, family string, index map[string]string) (string, bool) {
	candidates := []string{token}

	if idx := strings.LastIndexByte(token, '.'); idx >= 0 && family != "js" {
		candidates = append(candidates, strings.ReplaceAll(token, ".", "/"))
	}
	if idx := strings.LastIndexAny(token, "/\\:"); idx >= 0 {
		candidates = append(candidates, token[idx+1:])
	}
	candidates = append(candidates, path.Base(strings.ReplaceAll(token, "::", "/")))

	ext := familyExt(family)
	withExt := make([]string, 0, len(candidates))
	for _, c := range candidates {
		withExt = append(withExt, c+ext)
	}
	candidates = append(candidates, withExt...)

	for _, c := range candidates {
		if relPath, ok := index[c]; ok {
			return relPath, true
		}
	}
	return "", false
}

func familyExt(family string) string {
	switch family {
	case "python":
		return ".py"
	case "js":
		return ".ts"
	case "rust":
		return ".rs"
	case "java":
		return ".java"
	case "go":
		return ".go"
	case "ruby":
		return ".rb"
	case "php":
		return ".php"
	case "swift":
		return ".swift"
	default:
		return ""
	}
}

func dedupStable(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// --- 3b. Dependency section --------------------------------------------------

func writeDependencySection(b *strings.Builder, files []*Node, g *importGraph) {
	b.WriteString("## Dependencies\n\n")

	any := false
	for _, f := range files {
		internal := g.internal[f.RelPath]
		external := g.external[f.RelPath]
		if len(internal) == 0 && len(external) == 0 {
			continue
		}
		any = true
		fmt.Fprintf(b, "- %s\n", f.RelPath)
		if len(internal) > 0 {
			fmt.Fprintf(b, "  - internal: %s\n", truncatedList(internal, 5))
		}
		if len(external) > 0 {
			fmt.Fprintf(b, "  - external: %s\n", truncatedList(external, 5))
		}
	}
	if !any {
		b.WriteString("(none)\n")
	}
}

func truncatedList(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, ", ")
	}
	shown := items[:max]
	return fmt.Sprintf("%s, …and %d more", strings.Join(shown, ", "), len(items)-max)
}

// --- 4. Per-file section ------------------------------------------------------

func writePerFileSections(b *strings.Builder, files []*Node, g *importGraph, opt Options) model.CopyStats {
	var stats model.CopyStats
	b.WriteString("## Files\n\n")

	for _, f := range files {
		fmt.Fprintf(b, "### %s\n\n", f.RelPath)
		stats.Files++

		if n := g.importedBy[f.RelPath]; n > 0 {
			fmt.Fprintf(b, "imported by %d files\n\n", n)
		}
		if internal := g.internal[f.RelPath]; len(internal) > 0 {
			fmt.Fprintf(b, "internal deps: %s\n\n", truncatedList(internal, 5))
		}
		if external := g.external[f.RelPath]; len(external) > 0 {
			fmt.Fprintf(b, "external deps: %s\n\n", truncatedList(external, 5))
		}

		lang := strings.TrimPrefix(path.Ext(f.RelPath), ".")
		fmt.Fprintf(b, "```%s\n", lang)
		if f.IsBinary && !opt.IncludeBinary {
			b.WriteString("<binary file>")
		} else {
			content := f.Content
			if opt.ShowLineNumbers {
				content = numberLines(content)
			}
			b.WriteString(content)
			if !strings.HasSuffix(content, "\n") {
				b.WriteString("\n")
			}
			stats.Bytes += len(f.Content)
			stats.Lines += strings.Count(f.Content, "\n")
		}
		b.WriteString("```\n\n")
	}

	return stats
}
