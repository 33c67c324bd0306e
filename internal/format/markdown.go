package format

import (
	"fmt"
	"strings"

	"github.com/aibundle/aibundle/internal/model"
)

// Markdown renders folders as "## path/" headings and files as fenced code
// blocks tagged with the file's relative path (spec §4.4), separated by
// blank lines.
type Markdown struct{}

func (Markdown) Format(root *Node, opt Options) (string, model.CopyStats, error) {
	var b strings.Builder
	var stats model.CopyStats
	first := true
	for _, child := range root.Children {
		renderMarkdownNode(&b, child, opt, &stats, &first)
	}
	return b.String(), stats, nil
}

func renderMarkdownNode(b *strings.Builder, n *Node, opt Options, stats *model.CopyStats, first *bool) {
	if !*first {
		b.WriteString("\n")
	}
	*first = false

	if n.IsDir {
		fmt.Fprintf(b, "## %s/\n", n.RelPath)
		stats.Folders++
		childFirst := true
		for _, c := range n.Children {
			renderMarkdownNode(b, c, opt, stats, &childFirst)
		}
		return
	}

	fmt.Fprintf(b, "```%s\n", n.RelPath)
	if n.IsBinary && !opt.IncludeBinary {
		b.WriteString("<binary file>")
	} else {
		content := n.Content
		if opt.ShowLineNumbers {
			content = numberLines(content)
		}
		b.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n")

	stats.Files++
	stats.Bytes += len(n.Content)
	stats.Lines += strings.Count(n.Content, "\n")
}
