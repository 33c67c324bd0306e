// Package model defines the data types shared across every aibundle
// subsystem: discovery, ignore evaluation, selection, formatting, and both
// front-ends. Only data types and small validation helpers live here; the
// business logic that operates on them belongs to the owning package.
package model

import "strings"

// OutputFormat selects the serialisation produced by the format package.
type OutputFormat string

const (
	FormatXML      OutputFormat = "xml"
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatLLM      OutputFormat = "llm"
)

// Next cycles XML -> Markdown -> JSON -> LLM -> XML, matching the TUI's
// "f" key (spec: "cycle XML->MD->JSON->LLM").
func (f OutputFormat) Next() OutputFormat {
	switch f {
	case FormatXML:
		return FormatMarkdown
	case FormatMarkdown:
		return FormatJSON
	case FormatJSON:
		return FormatLLM
	default:
		return FormatXML
	}
}

// Valid reports whether f is one of the four recognised formats.
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatXML, FormatMarkdown, FormatJSON, FormatLLM:
		return true
	default:
		return false
	}
}

// ParseOutputFormat parses a CLI/config string into an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", false
	}
	return f, true
}

// IgnoreConfig is the immutable-during-a-traversal configuration consulted by
// the ignore engine. Defaults: UseDefaultIgnores=true, UseGitignore=true,
// IncludeBinaryFiles=false.
type IgnoreConfig struct {
	UseDefaultIgnores  bool
	UseGitignore       bool
	IncludeBinaryFiles bool
	GitTrackedOnly     bool
	// ExtraPatterns is an ordered sequence of glob-like strings (spec §3).
	ExtraPatterns []string
	// MaxFileSize is the large-file skip threshold in bytes; 0 disables it.
	// Supplements spec.md with the teacher's --skip-large-files behaviour.
	MaxFileSize int64
}

// DefaultIgnoreConfig returns the spec-mandated defaults.
func DefaultIgnoreConfig() IgnoreConfig {
	return IgnoreConfig{
		UseDefaultIgnores:  true,
		UseGitignore:       true,
		IncludeBinaryFiles: false,
	}
}

// CopyStats aggregates counters produced by a formatting pass (spec §3).
type CopyStats struct {
	Files   int
	Folders int
	Lines   int
	Bytes   int
}

// Add accumulates other into the receiver.
func (c *CopyStats) Add(other CopyStats) {
	c.Files += other.Files
	c.Folders += other.Folders
	c.Lines += other.Lines
	c.Bytes += other.Bytes
}

// DisplayItem is a path plus the presentation attributes the TUI's file list
// needs (spec §3).
type DisplayItem struct {
	Path       string // absolute path
	RelPath    string // normalised, relative to the traversal root
	Name       string
	Depth      int
	IsDir      bool
	IsExpanded bool
	IsParent   bool // the synthetic ".." entry
	IsSymlink  bool
	Size       int64
}

// IconKey returns a stable key the renderer maps to a glyph, so the TUI layer
// never branches on IsDir/IsParent directly.
func (d DisplayItem) IconKey() string {
	switch {
	case d.IsParent:
		return "parent"
	case d.IsDir && d.IsExpanded:
		return "dir-open"
	case d.IsDir:
		return "dir-closed"
	case d.IsSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// AppMessageLevel classifies a transient TUI status message.
type AppMessageLevel int

const (
	MessageInfo AppMessageLevel = iota
	MessageWarning
	MessageError
)

// AppMessage is a transient message rendered in the TUI's message band for a
// fixed duration (spec §7: "rendered in the message band for 3 s").
type AppMessage struct {
	Level AppMessageLevel
	Text  string
	// ExpiresAtTick is an opaque monotonic tick count set by the event loop;
	// the loop clears the message once its tick counter passes this value.
	ExpiresAtTick int64
}

// Options is the fully merged configuration consumed by both front-ends
// (spec §4.6/§4.7). It is the product of CLI flags > environment > TOML
// config file > built-in defaults, computed once at startup by
// tomlconfig.ResolveOptions.
type Options struct {
	SourceDir      string
	FilesGlob      string
	Search         string
	OutputFile     string
	OutputConsole  bool
	Format         OutputFormat
	Recursive      bool
	LineNumbers    bool
	Ignore         IgnoreConfig
	SelectionLimit int
	SaveConfig     bool
	ClearCache     bool
	TokenizerName  string
	ApproxTokens   bool
}

// DefaultSelectionLimit is the spec's default selection_limit (§4.3).
const DefaultSelectionLimit = 400
