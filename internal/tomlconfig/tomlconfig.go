// Package tomlconfig implements TOML config load/save, one of spec §1's
// named out-of-scope "external collaborators, specified only by interface".
// The file lives at ~/.aibundle.config.toml with [cli]/[tui] sections (spec
// §6) plus a top-level selection_limit.
package tomlconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aibundle/aibundle/internal/model"
)

// Section holds the CLI-flag-shaped settings a [cli] or [tui] table can
// carry. Every field is optional -- the zero value (or nil, for the bool
// fields) means "unset", so a config file that only sets format doesn't
// clobber the rest. Unlike the teacher's mergeProfile (whose bool fields
// always let the override win, "false is a valid override value"), every
// bool here is a *bool: aibundle's CLI flags are plain store-true switches
// with no meaningful explicit-false, so tri-state is the only way a later
// layer can distinguish "not passed" from "passed as false".
type Section struct {
	SourceDir     string   `toml:"source_dir"`
	Files         string   `toml:"files"`
	Search        string   `toml:"search"`
	OutputFile    string   `toml:"output_file"`
	OutputConsole *bool    `toml:"output_console"`
	Format        string   `toml:"format"`
	Recursive     *bool    `toml:"recursive"`
	LineNumbers   *bool    `toml:"line_numbers"`
	Gitignore     *bool    `toml:"gitignore"`
	Ignore        []string `toml:"ignore"`
}

// File is the on-disk schema at ~/.aibundle.config.toml.
type File struct {
	CLI            Section `toml:"cli"`
	TUI            Section `toml:"tui"`
	SelectionLimit int     `toml:"selection_limit"`
}

// DefaultPath returns ~/.aibundle.config.toml, the location spec §6 names.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".aibundle.config.toml"), nil
}

// Load reads and parses path. A missing file is not an error -- it returns a
// zero-value *File so callers can merge unconditionally, matching the
// teacher's "missing config files are silently ignored" resolution rule.
// Unknown keys are logged as a warning, never rejected, so a config written
// by a newer aibundle version still loads here. They are not kept on the
// returned File, so a later Save does not write them back.
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, &model.AIBundleError{Kind: model.ErrConfigIO, Code: model.ExitError, Message: "reading config", Path: path, Err: err}
	}

	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, &model.AIBundleError{Kind: model.ErrConfigParse, Code: model.ExitError, Message: "parsing config", Path: path, Err: err}
	}
	warnUndecodedKeys(meta, path)
	return &f, nil
}

func warnUndecodedKeys(meta toml.MetaData, path string) {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	slog.Warn("unknown config keys ignored; they are not written back on save", "path", path, "keys", strings.Join(keys, ", "))
}

// Save writes f to path atomically: encode to a temp file in the same
// directory, then rename over the destination, so a crash mid-write never
// leaves a truncated config (spec §9 "persist options... write atomically:
// temp file + rename").
func Save(path string, f *File) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".aibundle.config.*.toml.tmp")
	if err != nil {
		return &model.AIBundleError{Kind: model.ErrConfigIO, Code: model.ExitError, Message: "creating temp config file", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := toml.NewEncoder(tmp).Encode(f); err != nil {
		tmp.Close()
		return &model.AIBundleError{Kind: model.ErrConfigIO, Code: model.ExitError, Message: "encoding config", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.AIBundleError{Kind: model.ErrConfigIO, Code: model.ExitError, Message: "closing temp config file", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &model.AIBundleError{Kind: model.ErrConfigIO, Code: model.ExitError, Message: "replacing config file", Path: path, Err: err}
	}
	return nil
}

// EnvOverrides reads AIBUNDLE_* environment variables into a Section,
// supplementing spec.md per SPEC_FULL.md's teacher-derived env layer
// (AIBUNDLE_DIR, AIBUNDLE_FORMAT, ...). Only variables that are set and
// parse successfully are applied; everything else is left at its zero
// value so sectionToFlatMap (ResolveOptions's merge) treats it as unset.
func EnvOverrides() Section {
	var s Section
	if v := os.Getenv("AIBUNDLE_DIR"); v != "" {
		s.SourceDir = v
	}
	if v := os.Getenv("AIBUNDLE_FORMAT"); v != "" {
		s.Format = v
	}
	if v := os.Getenv("AIBUNDLE_FILES"); v != "" {
		s.Files = v
	}
	if v := os.Getenv("AIBUNDLE_OUTPUT_FILE"); v != "" {
		s.OutputFile = v
	}
	if v := os.Getenv("AIBUNDLE_RECURSIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Recursive = &b
		}
	}
	if v := os.Getenv("AIBUNDLE_LINE_NUMBERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.LineNumbers = &b
		}
	}
	if v := os.Getenv("AIBUNDLE_GITIGNORE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Gitignore = &b
		}
	}
	if v := os.Getenv("AIBUNDLE_IGNORE"); v != "" {
		s.Ignore = strings.Split(v, ",")
	}
	return s
}
