package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aibundle/aibundle/internal/model"
)

// DefaultSkipLargeFiles is a 1 MiB file size threshold. ParseSize does not
// consult it (a number with no unit is read as bytes), and the
// --skip-large-files flag itself defaults to "" (no limit) until explicitly
// set.
const DefaultSkipLargeFiles int64 = 1 * 1024 * 1024

// FlagValues collects all parsed global flag values from the CLI. BindFlags
// populates it; ValidateFlags normalises and checks it; cmd/aibundle folds
// the subset the user actually passed into a tomlconfig.Section for
// ResolveOptions's CLI-flags layer.
type FlagValues struct {
	SourceDir      string
	Files          string
	Search         string
	OutputFile     string
	OutputConsole  bool
	Format         string
	Recursive      bool
	LineNumbers    bool
	Gitignore      bool
	ExtraIgnores   []string
	IncludeBinary  bool
	GitTrackedOnly bool
	SkipLargeFiles int64 // bytes, 0 means no limit
	SaveConfig     bool
	ClearCache     bool
	Verbose        bool
	Quiet          bool
	Tokenizer      string
	ApproxTokens   bool
}

// skipLargeFilesRaw holds the raw string value for --skip-large-files before
// parsing. Package-level because Cobra needs a string bind target; it is
// parsed into FlagValues.SkipLargeFiles during ValidateFlags.
var skipLargeFilesRaw string

// BindFlags registers every flag spec §6's table names, plus the
// supplemented --git-tracked-only/--skip-large-files/--clear-cache flags, on
// cmd's persistent flag set and returns the struct they populate.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&fv.SourceDir, "source-dir", "d", ".", "source directory to traverse")
	pf.StringVarP(&fv.Files, "files", "f", "", "glob pattern selecting files non-interactively (enables CLI mode)")
	pf.StringVarP(&fv.Search, "search", "s", "", "substring filter applied to selected paths")
	pf.StringVarP(&fv.OutputFile, "output-file", "o", "", "write the bundle to this file (enables CLI mode)")
	pf.BoolVarP(&fv.OutputConsole, "output-console", "p", false, "print the bundle to stdout (enables CLI mode)")
	pf.StringVarP(&fv.Format, "format", "m", "", "output format: xml, markdown, json, llm")
	pf.BoolVarP(&fv.Recursive, "recursive", "r", false, "traverse subdirectories recursively")
	pf.BoolVarP(&fv.LineNumbers, "line-numbers", "n", false, "prefix code blocks with line numbers")
	pf.BoolVarP(&fv.Gitignore, "gitignore", "g", true, "honour .gitignore patterns")
	pf.StringArrayVarP(&fv.ExtraIgnores, "ignore", "i", nil, "extra ignore glob pattern (repeatable)")
	pf.BoolVarP(&fv.SaveConfig, "save-config", "S", false, "persist the merged options and exit (enables CLI mode)")
	pf.BoolVar(&fv.IncludeBinary, "include-binary", false, "include binary files instead of skipping them")
	pf.BoolVar(&fv.GitTrackedOnly, "git-tracked-only", false, "only include files tracked by git")
	pf.StringVar(&skipLargeFilesRaw, "skip-large-files", "", "skip files larger than threshold (e.g. 500KB, 2MB)")
	pf.BoolVar(&fv.ClearCache, "clear-cache", false, "clear the walker's cached directory listings before running")
	pf.BoolVarP(&fv.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&fv.Quiet, "quiet", "q", false, "suppress all logging except errors")
	pf.StringVar(&fv.Tokenizer, "tokenizer", "cl100k_base", "tiktoken encoding used for --approx-tokens")
	pf.BoolVar(&fv.ApproxTokens, "approx-tokens", false, "annotate the bundle with an approximate token count")

	return fv
}

// CLIRequested reports whether any of the flags spec §6 names as CLI-mode
// triggers were set ("CLI mode is triggered iff any of --files,
// --output-file, --output-console, --save-config is present; otherwise TUI
// launches").
func (fv *FlagValues) CLIRequested() bool {
	return fv.Files != "" || fv.OutputFile != "" || fv.OutputConsole || fv.SaveConfig
}

// ValidateFlags checks the parsed flag values for correctness and mutual
// exclusion, applies AIBUNDLE_* environment fallbacks, and parses
// --skip-large-files. Call this from PersistentPreRunE after Cobra parses
// the flags.
func ValidateFlags(fv *FlagValues, cmd *cobra.Command) error {
	applyEnvOverrides(fv, cmd)

	if fv.Verbose && fv.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	if fv.Format != "" {
		if _, ok := model.ParseOutputFormat(fv.Format); !ok {
			return fmt.Errorf("--format: invalid value %q (allowed: xml, markdown, json, llm)", fv.Format)
		}
	}

	if skipLargeFilesRaw != "" {
		size, err := ParseSize(skipLargeFilesRaw)
		if err != nil {
			return fmt.Errorf("--skip-large-files: %w", err)
		}
		fv.SkipLargeFiles = size
	}

	return nil
}

// applyEnvOverrides applies AIBUNDLE_* environment fallbacks for flags that
// were not explicitly set on the command line.
func applyEnvOverrides(fv *FlagValues, cmd *cobra.Command) {
	if v := os.Getenv("AIBUNDLE_DIR"); v != "" && !cmd.Flags().Changed("source-dir") {
		fv.SourceDir = v
	}
	if v := os.Getenv("AIBUNDLE_FORMAT"); v != "" && !cmd.Flags().Changed("format") {
		fv.Format = v
	}
	if os.Getenv("AIBUNDLE_VERBOSE") == "1" && !cmd.Flags().Changed("verbose") {
		fv.Verbose = true
	}
	if os.Getenv("AIBUNDLE_QUIET") == "1" && !cmd.Flags().Changed("quiet") {
		fv.Quiet = true
	}
}

// ParseSize parses a human-readable size string into bytes. It supports KB,
// MB, and GB suffixes (case-insensitive); plain numbers are treated as
// bytes. KB = 1024, MB = 1048576, GB = 1073741824.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	upper := strings.ToUpper(s)

	var suffix string
	var multiplier int64

	switch {
	case strings.HasSuffix(upper, "GB"):
		suffix, multiplier = "GB", 1024*1024*1024
	case strings.HasSuffix(upper, "MB"):
		suffix, multiplier = "MB", 1024*1024
	case strings.HasSuffix(upper, "KB"):
		suffix, multiplier = "KB", 1024
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		if n < 0 {
			return 0, fmt.Errorf("size must be non-negative: %q", s)
		}
		return n, nil
	}

	numStr := strings.TrimSpace(s[:len(s)-len(suffix)])
	n, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(numStr, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		if f < 0 {
			return 0, fmt.Errorf("size must be non-negative: %q", s)
		}
		return int64(f * float64(multiplier)), nil
	}
	if n < 0 {
		return 0, fmt.Errorf("size must be non-negative: %q", s)
	}
	return n * multiplier, nil
}
