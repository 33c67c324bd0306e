package tomlconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aibundle/aibundle/internal/model"
)

func TestLoad_MissingFileReturnsZeroValue(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, &File{}, f)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	gitignore := true
	recursive := true
	f := &File{
		CLI: Section{
			SourceDir: "/tmp/project",
			Format:    "xml",
			Recursive: &recursive,
			Gitignore: &gitignore,
			Ignore:    []string{"default", "*.log"},
		},
		SelectionLimit: 250,
	}

	require.NoError(t, Save(path, f))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/project", loaded.CLI.SourceDir)
	require.Equal(t, "xml", loaded.CLI.Format)
	require.True(t, *loaded.CLI.Recursive)
	require.True(t, *loaded.CLI.Gitignore)
	require.Equal(t, []string{"default", "*.log"}, loaded.CLI.Ignore)
	require.Equal(t, 250, loaded.SelectionLimit)
}

func TestSave_WritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(path, &File{SelectionLimit: 10}))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp")
	}
}

func TestResolveOptions_DefaultsOnly(t *testing.T) {
	opts := ResolveOptions(nil, false, Section{})
	require.Equal(t, ".", opts.SourceDir)
	require.Equal(t, model.FormatLLM, opts.Format)
	require.True(t, opts.Ignore.UseGitignore)
	require.True(t, opts.Ignore.UseDefaultIgnores)
	require.Equal(t, model.DefaultSelectionLimit, opts.SelectionLimit)
}

func TestResolveOptions_ConfigOverridesDefaults(t *testing.T) {
	recursive := true
	file := &File{CLI: Section{Format: "xml", Recursive: &recursive}, SelectionLimit: 100}
	opts := ResolveOptions(file, false, Section{})
	require.Equal(t, model.FormatXML, opts.Format)
	require.True(t, opts.Recursive)
	require.Equal(t, 100, opts.SelectionLimit)
}

func TestResolveOptions_CLIFlagsOverrideConfig(t *testing.T) {
	file := &File{CLI: Section{Format: "xml"}}
	opts := ResolveOptions(file, false, Section{Format: "json"})
	require.Equal(t, model.FormatJSON, opts.Format)
}

func TestResolveOptions_TUISectionUsedWhenTUIRequested(t *testing.T) {
	file := &File{
		CLI: Section{Format: "xml"},
		TUI: Section{Format: "markdown"},
	}
	opts := ResolveOptions(file, true, Section{})
	require.Equal(t, model.FormatMarkdown, opts.Format)
}

func TestResolveOptions_UnsetFieldsDoNotOverwritePriorLayers(t *testing.T) {
	file := &File{CLI: Section{SourceDir: "/configured"}}
	opts := ResolveOptions(file, false, Section{Format: "json"}) // CLI flags set only Format
	require.Equal(t, "/configured", opts.SourceDir)               // untouched by the CLI layer
	require.Equal(t, model.FormatJSON, opts.Format)
}

func TestApplyOptions_RoundTripsThroughSaveAndResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	opts := model.Options{
		SourceDir:      "/work",
		Format:         model.FormatMarkdown,
		Recursive:      true,
		SelectionLimit: 500,
		Ignore: model.IgnoreConfig{
			UseDefaultIgnores: true,
			UseGitignore:      true,
			ExtraPatterns:     []string{"*.bin"},
		},
	}

	file := ApplyOptions(&File{}, false, opts)
	require.NoError(t, Save(path, file))

	loaded, err := Load(path)
	require.NoError(t, err)
	resolved := ResolveOptions(loaded, false, Section{})
	require.Equal(t, opts.SourceDir, resolved.SourceDir)
	require.Equal(t, opts.Format, resolved.Format)
	require.Equal(t, opts.Recursive, resolved.Recursive)
	require.Equal(t, opts.SelectionLimit, resolved.SelectionLimit)
	require.True(t, resolved.Ignore.UseDefaultIgnores)
	require.Contains(t, resolved.Ignore.ExtraPatterns, "*.bin")
}
