package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aibundle/aibundle/internal/model"
)

func TestOptionsFromArgs_Defaults(t *testing.T) {
	opts, err := optionsFromArgs(BundleArgs{SourceDir: "."})
	require.NoError(t, err)
	require.Equal(t, model.FormatLLM, opts.Format)
	require.True(t, opts.Recursive)
	require.True(t, opts.Ignore.UseGitignore)
	require.False(t, opts.Ignore.IncludeBinaryFiles)
}

func TestOptionsFromArgs_RequiresSourceDir(t *testing.T) {
	_, err := optionsFromArgs(BundleArgs{})
	require.Error(t, err)
}

func TestOptionsFromArgs_InvalidFormat(t *testing.T) {
	_, err := optionsFromArgs(BundleArgs{SourceDir: ".", Format: "yaml"})
	require.Error(t, err)
}

func TestOptionsFromArgs_GitignoreExplicitFalse(t *testing.T) {
	no := false
	opts, err := optionsFromArgs(BundleArgs{SourceDir: ".", Gitignore: &no})
	require.NoError(t, err)
	require.False(t, opts.Ignore.UseGitignore)
}

func TestOptionsFromArgs_GitignoreOmittedStaysTrue(t *testing.T) {
	opts, err := optionsFromArgs(BundleArgs{SourceDir: "."})
	require.NoError(t, err)
	require.True(t, opts.Ignore.UseGitignore)
}

func TestOptionsFromArgs_PassesThroughKnobs(t *testing.T) {
	opts, err := optionsFromArgs(BundleArgs{
		SourceDir:      ".",
		FilesGlob:      "*.go",
		Search:         "needle",
		LineNumbers:    true,
		IncludeBinary:  true,
		GitTrackedOnly: true,
		ExtraIgnore:    []string{"*.log"},
	})
	require.NoError(t, err)
	require.Equal(t, "*.go", opts.FilesGlob)
	require.Equal(t, "needle", opts.Search)
	require.True(t, opts.LineNumbers)
	require.True(t, opts.Ignore.IncludeBinaryFiles)
	require.True(t, opts.Ignore.GitTrackedOnly)
	require.Equal(t, []string{"*.log"}, opts.Ignore.ExtraPatterns)
}

func TestHandleBundle_RendersSelectedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world\n"), 0o644))

	s := New("test")
	result, res, err := s.handleBundle(context.Background(), nil, BundleArgs{
		SourceDir: root,
		Format:    "markdown",
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Files)
	require.Contains(t, res.Content, "a.txt")
	require.Contains(t, res.Content, "hello")
	require.NotEmpty(t, res.RequestID)
	require.Len(t, result.Content, 1)
}

func TestHandleBundle_RejectsMissingSourceDir(t *testing.T) {
	s := New("test")
	_, _, err := s.handleBundle(context.Background(), nil, BundleArgs{})
	require.Error(t, err)
}
