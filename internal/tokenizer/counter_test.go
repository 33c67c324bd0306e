package tokenizer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibundle/aibundle/internal/tokenizer"
)

// stubTokenizer is a deterministic, zero-overhead Tokenizer implementation
// used exclusively in tests. Count returns len(text) so that expected totals
// can be computed arithmetically without initialising any BPE encoder.
type stubTokenizer struct{ name string }

func (s *stubTokenizer) Count(text string) int { return len(text) }
func (s *stubTokenizer) Name() string          { return s.name }

func newStub() *stubTokenizer { return &stubTokenizer{name: "stub"} }

var _ tokenizer.Tokenizer = (*stubTokenizer)(nil)

func TestTokenCounter_CountFile_populated(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{name: "short ascii content", content: "hello"},
		{name: "go source snippet", content: "package main\n\nfunc main() {}"},
		{name: "multiline content", content: "line one\nline two\nline three\n"},
		{name: "unicode content", content: "こんにちは"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := tokenizer.NewTokenCounter(newStub())
			fc := &tokenizer.FileContent{Path: "src/file.go", Content: tt.content}

			c.CountFile(fc)

			assert.Equal(t, len(tt.content), fc.TokenCount,
				"CountFile must populate TokenCount from fc.Content")
		})
	}
}

func TestTokenCounter_CountFile_empty(t *testing.T) {
	t.Parallel()
	c := tokenizer.NewTokenCounter(newStub())
	fc := &tokenizer.FileContent{Path: "empty.go"}

	c.CountFile(fc)

	assert.Equal(t, 0, fc.TokenCount, "empty content must produce TokenCount == 0")
}

func TestTokenCounter_CountFiles_zero(t *testing.T) {
	t.Parallel()
	c := tokenizer.NewTokenCounter(newStub())

	total, err := c.CountFiles(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, total, "zero files must return total == 0")
}

func TestTokenCounter_CountFiles_multiple(t *testing.T) {
	t.Parallel()
	contents := []string{
		"abcde",
		"1234567890",
		"",
		"hello world",
		strings.Repeat("x", 1000),
	}
	wantTotal := 0
	files := make([]*tokenizer.FileContent, len(contents))
	for i, c := range contents {
		wantTotal += len(c)
		files[i] = &tokenizer.FileContent{Path: "file.go", Content: c}
	}

	counter := tokenizer.NewTokenCounter(newStub())
	total, err := counter.CountFiles(context.Background(), files)

	require.NoError(t, err)
	assert.Equal(t, wantTotal, total, "CountFiles must return sum of per-file token counts")

	for i, fc := range files {
		assert.Equal(t, len(contents[i]), fc.TokenCount, "files[%d].TokenCount must equal len(content)", i)
	}
}

func TestTokenCounter_CountFiles_singleFile(t *testing.T) {
	t.Parallel()
	content := "hello"
	fc := &tokenizer.FileContent{Path: "single.go", Content: content}

	c := tokenizer.NewTokenCounter(newStub())
	total, err := c.CountFiles(context.Background(), []*tokenizer.FileContent{fc})

	require.NoError(t, err)
	assert.Equal(t, len(content), total)
	assert.Equal(t, len(content), fc.TokenCount)
}

func TestTokenCounter_CountFiles_cancellation(t *testing.T) {
	t.Parallel()

	const fileCount = 500
	files := make([]*tokenizer.FileContent, fileCount)
	for i := range files {
		files[i] = &tokenizer.FileContent{Path: "file.go", Content: strings.Repeat("a", 128)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := tokenizer.NewTokenCounter(newStub())
	_, err := c.CountFiles(ctx, files)

	require.Error(t, err, "CountFiles must return an error when context is cancelled")
}

func TestTokenCounter_EstimateOverhead_values(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		fileCount int
		want      int
	}{
		{name: "zero files", fileCount: 0, want: 200},
		{name: "ten files", fileCount: 10, want: 550},
		{name: "one file", fileCount: 1, want: 235},
		{name: "100 files", fileCount: 100, want: 3700},
		{name: "1000 files", fileCount: 1000, want: 35200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := tokenizer.NewTokenCounter(newStub())
			got := c.EstimateOverhead(tt.fileCount)
			assert.Equal(t, tt.want, got, "EstimateOverhead(%d) = %d, want %d", tt.fileCount, got, tt.want)
		})
	}
}

func BenchmarkTokenCounter_CountFiles_1K(b *testing.B) {
	const fileCount = 1000
	const contentSize = 1024

	content := strings.Repeat("x", contentSize)
	files := make([]*tokenizer.FileContent, fileCount)
	for i := range files {
		files[i] = &tokenizer.FileContent{Path: "file.go", Content: content}
	}

	c := tokenizer.NewTokenCounter(newStub())
	ctx := context.Background()

	b.ResetTimer()
	for range b.N {
		for _, fc := range files {
			fc.TokenCount = 0
		}
		_, err := c.CountFiles(ctx, files)
		if err != nil {
			b.Fatal(err)
		}
	}
}
