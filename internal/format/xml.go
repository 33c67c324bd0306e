package format

import (
	"strings"

	"github.com/aibundle/aibundle/internal/model"
)

// XML renders `<folder name="…">…</folder>` / `<file name="…">content</file>`
// nesting (spec §4.4). No XML escaping beyond quoting attribute values;
// content is emitted verbatim, matching the teacher's plain string-builder
// rendering rather than a templating or encoding/xml-marshalled tree, since
// the spec explicitly accepts unescaped content.
type XML struct{}

func (XML) Format(root *Node, opt Options) (string, model.CopyStats, error) {
	var b strings.Builder
	var stats model.CopyStats
	for _, child := range root.Children {
		renderXMLNode(&b, child, opt, &stats)
	}
	return b.String(), stats, nil
}

func renderXMLNode(b *strings.Builder, n *Node, opt Options, stats *model.CopyStats) {
	if n.IsDir {
		b.WriteString(`<folder name="`)
		b.WriteString(xmlAttr(n.Name))
		b.WriteString("\">\n")
		for _, c := range n.Children {
			renderXMLNode(b, c, opt, stats)
		}
		b.WriteString("</folder>\n")
		stats.Folders++
		return
	}

	b.WriteString(`<file name="`)
	b.WriteString(xmlAttr(n.Name))
	b.WriteString("\">")
	if n.IsBinary && !opt.IncludeBinary {
		b.WriteString("<binary file>")
	} else {
		content := n.Content
		if opt.ShowLineNumbers {
			content = numberLines(content)
		}
		b.WriteString(content)
	}
	b.WriteString("</file>\n")
	stats.Files++
	stats.Bytes += len(n.Content)
	stats.Lines += strings.Count(n.Content, "\n")
}

// xmlAttr strips double quotes from an attribute value; the spec requires
// only that attribute values contain no '"', not full XML escaping.
func xmlAttr(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
