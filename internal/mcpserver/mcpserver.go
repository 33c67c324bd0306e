// Package mcpserver exposes the aggregation core (internal/walk +
// internal/ignoreengine + internal/format) as a single Model Context
// Protocol tool, a third front-end alongside the CLI (internal/cliapp) and
// the TUI (internal/tuiapp) sharing the same core (spec §2: "It has two
// front-ends... This specification covers that shared aggregation core").
//
// Grounded on the teacher's declared-but-unused
// github.com/modelcontextprotocol/go-sdk dependency and on
// sebholstein-flowgentic's cmd/agentctl/mcp_server.go for the
// mcp.NewServer/mcp.AddTool/mcp.CallToolResult shape -- this package is the
// first real consumer of both go-sdk and google/uuid in this module.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aibundle/aibundle/internal/cliapp"
	"github.com/aibundle/aibundle/internal/format"
	"github.com/aibundle/aibundle/internal/model"
)

var logger = slog.Default().With("component", "mcpserver")

// Server wraps an *mcp.Server exposing the "bundle" tool.
type Server struct {
	server *mcp.Server
}

// New builds a Server with the bundle tool registered. version is reported
// to MCP clients as the server implementation version (cmd/aibundle passes
// internal/buildinfo.Version).
func New(version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "aibundle",
			Version: version,
		}, nil),
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "bundle",
		Description: "Aggregate a user-selected subset of files under source_dir into a " +
			"single LLM-consumable document (xml, markdown, json, or llm format).",
	}, s.handleBundle)
	return s
}

// Run serves the registered tools over stdio until ctx is cancelled or the
// transport's input stream closes.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// BundleArgs is the bundle tool's input schema. Every field mirrors a
// spec §6 CLI flag or IgnoreConfig knob so a client can reproduce any CLI
// invocation through the same tool.
type BundleArgs struct {
	SourceDir   string `json:"source_dir" jsonschema:"Root directory to traverse, relative or absolute."`
	Format      string `json:"format,omitempty" jsonschema:"Output format: xml, markdown, json, or llm. Defaults to llm."`
	FilesGlob   string `json:"files_glob,omitempty" jsonschema:"Glob pattern selecting which files to include, e.g. '*.go'."`
	Search      string `json:"search,omitempty" jsonschema:"Case-insensitive substring filter applied to selected paths."`
	Recursive   bool   `json:"recursive,omitempty" jsonschema:"Not consulted: this tool always descends into subdirectories."`
	LineNumbers bool   `json:"line_numbers,omitempty" jsonschema:"Prefix each emitted line with its 1-indexed line number."`
	// Gitignore is a pointer so a client can send an explicit false; JSON's
	// omitted-vs-false ambiguity on a plain bool would otherwise make it
	// impossible to turn .gitignore handling off, the same tri-state problem
	// internal/tomlconfig.Section solves the same way.
	Gitignore      *bool    `json:"gitignore,omitempty" jsonschema:"Honour .gitignore files. Defaults to true."`
	IncludeBinary  bool     `json:"include_binary,omitempty" jsonschema:"Include binary files instead of skipping them."`
	GitTrackedOnly bool     `json:"git_tracked_only,omitempty" jsonschema:"Restrict traversal to files tracked by git."`
	ExtraIgnore    []string `json:"extra_ignore,omitempty" jsonschema:"Additional ignore glob patterns."`
}

// BundleResult is the bundle tool's structured output, returned alongside the
// CallToolResult's text content.
type BundleResult struct {
	RequestID string `json:"request_id"`
	Content   string `json:"content"`
	Files     int    `json:"files"`
	Folders   int    `json:"folders"`
	Lines     int    `json:"lines"`
	Bytes     int    `json:"bytes"`
}

func (s *Server) handleBundle(ctx context.Context, _ *mcp.CallToolRequest, args BundleArgs) (*mcp.CallToolResult, BundleResult, error) {
	requestID := uuid.NewString()
	logger.Debug("tool call: bundle", "request_id", requestID, "source_dir", args.SourceDir)

	opts, err := optionsFromArgs(args)
	if err != nil {
		return nil, BundleResult{RequestID: requestID}, err
	}

	absRoot, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, BundleResult{RequestID: requestID}, model.NewError(model.ErrTraversalIO, "resolving source_dir", err)
	}

	selected, err := cliapp.SelectFiles(ctx, absRoot, opts)
	if err != nil {
		return nil, BundleResult{RequestID: requestID}, err
	}

	tree, err := format.BuildTree(selected, absRoot)
	if err != nil {
		return nil, BundleResult{RequestID: requestID}, model.NewError(model.ErrFormatterIO, "building output tree", err)
	}

	formatter := format.ForFormat(opts.Format)
	out, stats, err := formatter.Format(tree, format.Options{
		Root:            absRoot,
		ShowLineNumbers: opts.LineNumbers,
		IncludeBinary:   opts.Ignore.IncludeBinaryFiles,
		Ignore:          opts.Ignore,
	})
	if err != nil {
		return nil, BundleResult{RequestID: requestID}, model.NewError(model.ErrFormatterIO, "rendering output", err)
	}

	result := BundleResult{
		RequestID: requestID,
		Content:   out,
		Files:     stats.Files,
		Folders:   stats.Folders,
		Lines:     stats.Lines,
		Bytes:     stats.Bytes,
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: out}},
	}, result, nil
}

// optionsFromArgs resolves a BundleArgs request into model.Options, starting
// from model.DefaultIgnoreConfig (gitignore on unless args.Gitignore is
// false). Recursive is always true for this tool, since an MCP client has no
// interactive Tab-to-expand equivalent; args.Recursive is not consulted.
func optionsFromArgs(args BundleArgs) (model.Options, error) {
	if args.SourceDir == "" {
		return model.Options{}, fmt.Errorf("source_dir is required")
	}

	outFormat := model.FormatLLM
	if args.Format != "" {
		f, ok := model.ParseOutputFormat(args.Format)
		if !ok {
			return model.Options{}, fmt.Errorf("format: invalid value %q (allowed: xml, markdown, json, llm)", args.Format)
		}
		outFormat = f
	}

	ignore := model.DefaultIgnoreConfig()
	if args.Gitignore != nil {
		ignore.UseGitignore = *args.Gitignore
	}
	ignore.IncludeBinaryFiles = args.IncludeBinary
	ignore.GitTrackedOnly = args.GitTrackedOnly
	ignore.ExtraPatterns = args.ExtraIgnore

	return model.Options{
		SourceDir:   args.SourceDir,
		FilesGlob:   args.FilesGlob,
		Search:      args.Search,
		Format:      outFormat,
		Recursive:   true,
		LineNumbers: args.LineNumbers,
		Ignore:      ignore,
	}, nil
}
