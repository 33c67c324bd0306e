package format

import (
	"encoding/json"
	"strings"

	"github.com/aibundle/aibundle/internal/model"
)

// JSON renders the selection as an array of typed records (spec §4.4). Line
// numbering never applies to JSON. encoding/json handles UTF-8 string
// escaping and guarantees no trailing whitespace per record.
type JSON struct{}

// jsonRecord is the tagged union spec §4.4 describes: files carry an
// optional Content (omitted for binaries), directories carry Contents.
type jsonRecord struct {
	Type     string        `json:"type"`
	Path     string        `json:"path"`
	Binary   *bool         `json:"binary,omitempty"`
	Content  *string       `json:"content,omitempty"`
	Contents []*jsonRecord `json:"contents,omitempty"`
}

func (JSON) Format(root *Node, opt Options) (string, model.CopyStats, error) {
	var stats model.CopyStats
	records := make([]*jsonRecord, 0, len(root.Children))
	for _, child := range root.Children {
		records = append(records, toJSONRecord(child, opt, &stats))
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", stats, err
	}
	return string(out), stats, nil
}

func toJSONRecord(n *Node, opt Options, stats *model.CopyStats) *jsonRecord {
	if n.IsDir {
		stats.Folders++
		rec := &jsonRecord{Type: "directory", Path: n.RelPath}
		for _, c := range n.Children {
			rec.Contents = append(rec.Contents, toJSONRecord(c, opt, stats))
		}
		return rec
	}

	stats.Files++
	binary := n.IsBinary
	rec := &jsonRecord{Type: "file", Path: n.RelPath, Binary: &binary}
	if !n.IsBinary {
		content := n.Content
		stats.Bytes += len(content)
		stats.Lines += strings.Count(content, "\n")
		rec.Content = &content
	}
	return rec
}
