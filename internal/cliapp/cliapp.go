// Package cliapp implements the non-interactive batch pipeline (spec §4.6,
// C7): merge options, traverse, filter, format, deliver to exactly one
// sink. Grounded on the teacher's cli.generate.go + pipeline.Run shape,
// generalised from a stub single-mode runner into the full
// merge → traverse → format → deliver sequence this spec describes.
package cliapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aibundle/aibundle/internal/clipboard"
	"github.com/aibundle/aibundle/internal/format"
	"github.com/aibundle/aibundle/internal/ignoreengine"
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/tomlconfig"
	"github.com/aibundle/aibundle/internal/walk"
)

var logger = slog.Default().With("component", "cliapp")

// Run executes the CLI pipeline described in spec §4.6 and returns the
// aggregate CopyStats delivered on success. clip is the clipboard sink used
// when neither --output-file nor --output-console is given.
func Run(ctx context.Context, opts model.Options, configPath string, clip clipboard.Writer) (model.CopyStats, error) {
	if opts.SaveConfig {
		if err := saveConfig(configPath, opts); err != nil {
			return model.CopyStats{}, err
		}
		logger.Info("config saved", "path", configPath)
	}

	absRoot, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return model.CopyStats{}, model.NewError(model.ErrTraversalIO, "resolving source directory", err)
	}

	selected, err := SelectFiles(ctx, absRoot, opts)
	if err != nil {
		return model.CopyStats{}, err
	}

	tree, err := format.BuildTree(selected, absRoot)
	if err != nil {
		return model.CopyStats{}, model.NewError(model.ErrFormatterIO, "building output tree", err)
	}

	formatter := format.ForFormat(opts.Format)
	out, stats, err := formatter.Format(tree, format.Options{
		Root:             absRoot,
		ShowLineNumbers:  opts.LineNumbers,
		IncludeBinary:    opts.Ignore.IncludeBinaryFiles,
		Ignore:           opts.Ignore,
		ApproxTokens:     opts.ApproxTokens,
		TokenizerEncName: opts.TokenizerName,
	})
	if err != nil {
		return model.CopyStats{}, model.NewError(model.ErrFormatterIO, "rendering output", err)
	}

	if err := deliver(out, opts, clip); err != nil {
		return model.CopyStats{}, err
	}

	logger.Info("bundle delivered", "files", stats.Files, "folders", stats.Folders, "bytes", stats.Bytes)
	return stats, nil
}

// SelectFiles traverses absRoot and returns the root-relative paths of every
// non-ignored file matching opts.FilesGlob and opts.Search -- the CLI
// front-end's stand-in for the TUI's interactive selection.Set, since batch
// mode has no user toggling individual entries (spec §4.6's traversal step
// feeds directly into formatting). Exported so internal/mcpserver's bundle
// tool can drive the same selection logic as a third front-end.
func SelectFiles(ctx context.Context, absRoot string, opts model.Options) ([]string, error) {
	engine := ignoreengine.New(absRoot, opts.Ignore)
	w := walk.New()

	var binaryFilter func(string) bool
	if !opts.Ignore.IncludeBinaryFiles {
		binaryFilter = ignoreengine.IsBinary
	}

	var gitTracked map[string]bool
	if opts.Ignore.GitTrackedOnly {
		tracked, err := ignoreengine.GitTrackedAbsSet(absRoot)
		if err != nil {
			logger.Warn("git-tracked-only requested but git ls-files failed; continuing without the restriction", "error", err)
		} else {
			gitTracked = tracked
		}
	}

	// A --files glob is inherently a recursive search -- the caller has no
	// way to "expand" individual folders the way the TUI does, so matching
	// opts.FilesGlob against only the top level would silently miss every
	// nested file (spec §8 scenario S1: "aibundle --files '*.rs' ... ."
	// with no -r must still find a/x.rs and a/y.rs).
	recursive := opts.Recursive || opts.FilesGlob != ""

	result, err := w.Walk(ctx, walk.Options{
		Root:        absRoot,
		Ignorer:     engine,
		Binary:      binaryFilter,
		Recursive:   recursive,
		GitTracked:  gitTracked,
		MaxFileSize: opts.Ignore.MaxFileSize,
	})
	if err != nil {
		return nil, model.NewError(model.ErrTraversalIO, "traversing source directory", err)
	}
	for _, skip := range result.Skipped {
		logger.Debug("entry skipped", "path", skip.Path, "reason", skip.Reason)
	}

	search := strings.ToLower(opts.Search)
	var selected []string
	for _, e := range result.Entries {
		if e.IsDir {
			continue
		}
		if opts.FilesGlob != "" {
			matched, err := doublestar.Match(opts.FilesGlob, e.RelPath)
			if (err != nil || !matched) && !matchBaseName(opts.FilesGlob, e.Name) {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(e.RelPath), search) {
			continue
		}
		selected = append(selected, e.RelPath)
	}
	sort.Strings(selected)
	return selected, nil
}

// matchBaseName retries a glob against just the file's base name, so
// "--files *.rs" matches "a/x.rs" without requiring "**/*.rs".
func matchBaseName(glob, name string) bool {
	matched, err := doublestar.Match(glob, name)
	return err == nil && matched
}

func deliver(out string, opts model.Options, clip clipboard.Writer) error {
	switch {
	case opts.OutputFile != "":
		if err := os.WriteFile(opts.OutputFile, []byte(out), 0o644); err != nil {
			return model.NewError(model.ErrFormatterIO, fmt.Sprintf("writing output file %s", opts.OutputFile), err)
		}
		return nil
	case opts.OutputConsole:
		fmt.Print(out)
		return nil
	default:
		if err := clip.Write(out); err != nil {
			return err
		}
		return nil
	}
}

func saveConfig(configPath string, opts model.Options) error {
	file, err := tomlconfig.Load(configPath)
	if err != nil {
		return err
	}
	file = tomlconfig.ApplyOptions(file, false, opts)
	if err := tomlconfig.Save(configPath, file); err != nil {
		return err
	}
	return nil
}
