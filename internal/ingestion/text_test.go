package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText_PreserveMarkdownHeadings(t *testing.T) {
	result := CleanText("  # Title\n## Subtitle\nContent here")

	assert.Equal(t, "# Title\n## Subtitle\nContent here", result)
}

func TestCleanText_PreserveBulletLists(t *testing.T) {
	input := "- Item 1\n  - Nested\n* Item 3\n• Item 4"
	result := CleanText(input)

	assert.Contains(t, result, "- Item 1")
	assert.Contains(t, result, "  - Nested")
	assert.Contains(t, result, "* Item 3")
	assert.Contains(t, result, "• Item 4")
}

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	result := CleanText("Line    with \t   multiple    spaces")
	assert.Equal(t, "Line with multiple spaces", result)
}

func TestCleanText_RemoveExcessiveBlankLines(t *testing.T) {
	result := CleanText("Line 1\n\n\n\n\nLine 2")
	assert.Equal(t, "Line 1\n\nLine 2", result)
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	result := CleanText("Line 1\r\nLine 2\rLine 3\nLine 4")
	assert.Equal(t, "Line 1\nLine 2\nLine 3\nLine 4", result)
}

func TestCleanText_StripsNUL(t *testing.T) {
	assert.Equal(t, "ab", CleanText("a\x00b"))
}

func TestCleanText_EmptyAndWhitespace(t *testing.T) {
	assert.Empty(t, CleanText(""))
	assert.Empty(t, CleanText("   \n  \n  "))
}

func TestCleanText_SpecialCharacters(t *testing.T) {
	input := "Test with émojis 🚀 and spéciàl chàracters"
	assert.Equal(t, input, CleanText(input))
}

func TestDecodeText_ReplacesInvalidUTF8(t *testing.T) {
	assert.Equal(t, "ok�", DecodeText([]byte{'o', 'k', 0xc3}))
}

type stubExtractor struct {
	pdf, docx string
	err       error
}

func (s stubExtractor) ExtractPDF([]byte) (string, error)     { return s.pdf, s.err }
func (s stubExtractor) ExtractPDFFile(string) (string, error) { return s.pdf, s.err }
func (s stubExtractor) ExtractDOCX([]byte) (string, error)    { return s.docx, s.err }

func TestExtractBytes_DispatchesByFormat(t *testing.T) {
	x := stubExtractor{pdf: "pdf   text", docx: "docx text"}

	tests := []struct {
		name     string
		data     []byte
		filename string
		expected string
		format   Format
	}{
		{"pdf", []byte("%PDF-1.4\n%binary"), "a.pdf", "pdf text", FormatPDF},
		{"html", []byte("<html><body><main><p>Hello</p></main></body></html>"), "page.html", "Hello", FormatHTML},
		{"text", []byte("plain  words\r\n"), "notes.txt", "plain words", FormatText},
		{"markdown", []byte("# Heading\nbody"), "readme.md", "# Heading\nbody", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, meta, err := ExtractBytes(x, tt.data, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
			assert.Equal(t, tt.format, meta.Format)
			assert.Equal(t, len(tt.data), meta.Size)
			assert.Len(t, meta.Hash, 64)
		})
	}
}

func TestExtractBytes_Unsupported(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, _, err := ExtractBytes(DefaultExtractor{}, png, "image.png")

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIngestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example.txt")
	require.NoError(t, os.WriteFile(path, []byte("# Job Title\n\nDescription here"), 0644))

	text, meta, err := IngestFromFile(DefaultExtractor{}, path)
	require.NoError(t, err)
	assert.Equal(t, "# Job Title\n\nDescription here", text)
	assert.Equal(t, "example.txt", meta.Filename)

	_, _, err = IngestFromFile(DefaultExtractor{}, filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}
