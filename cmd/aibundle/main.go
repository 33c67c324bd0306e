// Package main is the entry point for the aibundle CLI/TUI tool.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aibundle/aibundle/internal/buildinfo"
	"github.com/aibundle/aibundle/internal/cliapp"
	"github.com/aibundle/aibundle/internal/clipboard"
	"github.com/aibundle/aibundle/internal/config"
	"github.com/aibundle/aibundle/internal/mcpserver"
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/tomlconfig"
	"github.com/aibundle/aibundle/internal/tuiapp"
)

var flagValues *config.FlagValues

var rootCmd = &cobra.Command{
	Use:   "aibundle",
	Short: "Bundle a codebase into an LLM-ready context document.",
	Long: `aibundle walks a directory, lets you pick files interactively or by
glob, and renders the selection as a single XML/Markdown/JSON/LLM-optimised
document for pasting into an LLM conversation.

With no mode-selecting flags it launches the interactive TUI explorer.
Passing --files, --output-file, --output-console, or --save-config runs the
non-interactive batch pipeline instead and exits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateFlags(flagValues, cmd); err != nil {
			return model.NewInvalidArgsError("invalid flags", err)
		}

		level := config.ResolveLogLevel(flagValues.Verbose, flagValues.Quiet)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)

		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	flagValues = config.BindFlags(rootCmd)

	rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"xml", "markdown", "json", "llm"}, cobra.ShellCompDirectiveNoFileComp
	})

	versionCmd.Flags().Bool("json", false, "output version info as JSON")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcpServerCmd)
}

// versionCmd reports build metadata, adapted from the teacher's
// internal/cli/version.go into a single command registered directly on
// rootCmd rather than living in its own package.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Long:  "Display the aibundle version, git commit, build date, Go version, and OS/architecture.",
	RunE:  runVersion,
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := versionInfo{
		Version:   buildinfo.Version,
		Commit:    buildinfo.Commit,
		Date:      buildinfo.Date,
		GoVersion: buildinfo.GoVersion,
		OS:        buildinfo.OS(),
		Arch:      buildinfo.Arch(),
	}

	if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "aibundle version %s\n", info.Version)
	fmt.Fprintf(cmd.OutOrStdout(), "  commit:     %s\n", info.Commit)
	fmt.Fprintf(cmd.OutOrStdout(), "  built:      %s\n", info.Date)
	fmt.Fprintf(cmd.OutOrStdout(), "  go version: %s\n", info.GoVersion)
	fmt.Fprintf(cmd.OutOrStdout(), "  os/arch:    %s/%s\n", info.OS, info.Arch)
	return nil
}

// mcpServerCmd exposes the aggregation core as a Model Context Protocol tool
// server over stdio, a third front-end alongside the TUI and the batch CLI.
var mcpServerCmd = &cobra.Command{
	Use:    "mcp-server",
	Short:  "Serve the bundle tool over the Model Context Protocol (stdio transport)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return mcpserver.New(buildinfo.Version).Run(cmd.Context())
	},
}

// run dispatches to the batch runner or the interactive TUI depending on
// whether the user passed a CLI-mode-triggering flag (spec §6: "CLI mode is
// triggered iff any of --files, --output-file, --output-console,
// --save-config is present; otherwise TUI launches").
func run(cmd *cobra.Command) error {
	configPath, err := tomlconfig.DefaultPath()
	if err != nil {
		return err
	}

	tui := !flagValues.CLIRequested()

	file, err := tomlconfig.Load(configPath)
	if err != nil {
		return err
	}
	opts := tomlconfig.ResolveOptions(file, tui, sectionFromFlags(cmd, flagValues))
	opts.SaveConfig = flagValues.SaveConfig
	opts.ClearCache = flagValues.ClearCache
	opts.Ignore.IncludeBinaryFiles = flagValues.IncludeBinary
	opts.Ignore.GitTrackedOnly = flagValues.GitTrackedOnly
	opts.Ignore.MaxFileSize = flagValues.SkipLargeFiles
	opts.TokenizerName = flagValues.Tokenizer
	opts.ApproxTokens = flagValues.ApproxTokens

	clip := clipboard.System{}

	if tui {
		m, err := tuiapp.New(opts.SourceDir, opts, configPath, clip)
		if err != nil {
			return err
		}
		program := tea.NewProgram(m, tea.WithAltScreen())
		finalModel, err := program.Run()
		if err != nil {
			return model.NewError(model.ErrTraversalIO, "running TUI", err)
		}
		if tm, ok := finalModel.(*tuiapp.Model); ok {
			return tm.ExitError()
		}
		return nil
	}

	stats, err := cliapp.Run(cmd.Context(), opts, configPath, clip)
	if err != nil {
		return err
	}
	slog.Info("done", "files", stats.Files, "folders", stats.Folders, "bytes", stats.Bytes)
	return nil
}

// sectionFromFlags folds only the flags the user actually passed into a
// tomlconfig.Section, so ResolveOptions's CLI layer never clobbers a config
// file or environment value with a flag's zero default (spec §6/§9: "CLI
// flags override config; config overrides defaults").
func sectionFromFlags(cmd *cobra.Command, fv *config.FlagValues) tomlconfig.Section {
	var s tomlconfig.Section
	changed := cmd.Flags().Changed

	if changed("source-dir") {
		s.SourceDir = fv.SourceDir
	}
	if changed("files") {
		s.Files = fv.Files
	}
	if changed("search") {
		s.Search = fv.Search
	}
	if changed("output-file") {
		s.OutputFile = fv.OutputFile
	}
	if changed("output-console") {
		v := fv.OutputConsole
		s.OutputConsole = &v
	}
	if fv.Format != "" {
		s.Format = fv.Format
	}
	if changed("recursive") {
		v := fv.Recursive
		s.Recursive = &v
	}
	if changed("line-numbers") {
		v := fv.LineNumbers
		s.LineNumbers = &v
	}
	if changed("gitignore") {
		v := fv.Gitignore
		s.Gitignore = &v
	}
	if changed("ignore") {
		s.Ignore = append([]string{"default"}, fv.ExtraIgnores...)
	}
	return s
}

// Execute runs the root command and returns the process exit code. If err
// wraps a *model.AIBundleError, its Code is used (spec §6's three exit
// codes); any other non-nil error returns ExitError.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		return extractExitCode(err)
	}
	return int(model.ExitSuccess)
}

func extractExitCode(err error) int {
	if err == nil {
		return int(model.ExitSuccess)
	}
	var aerr *model.AIBundleError
	if errors.As(err, &aerr) {
		return int(aerr.Code)
	}
	return int(model.ExitError)
}

func main() {
	os.Exit(Execute())
}
