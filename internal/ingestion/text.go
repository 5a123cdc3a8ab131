// Package ingestion turns uploaded or downloaded document bytes (PDF, DOCX,
// HTML, plain text) into normalized text.
package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jonathan/search-wizard/internal/fetch"
)

var (
	spaceRun      = regexp.MustCompile(`\s+`)
	blankLineRuns = regexp.MustCompile(`\n\n\n+`)
)

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\x00", "")

	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	result := strings.Join(cleanedLines, "\n")
	result = blankLineRuns.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving structure
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")

	if strings.TrimSpace(line) == "" {
		return ""
	}

	// Markdown headings lose their indentation
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	// Bullets keep their indentation
	if isBulletLine(line) {
		return line[:len(line)-len(trimmed)] + trimmed
	}

	leading := line[:len(line)-len(trimmed)]
	return leading + spaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "· ")
}

// DecodeText interprets data as UTF-8, replacing invalid sequences.
func DecodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}

// Extractor turns document bytes into text. The resolver depends on this
// interface so tests can substitute a fake for the MuPDF-backed default.
type Extractor interface {
	ExtractPDF(data []byte) (string, error)
	ExtractPDFFile(path string) (string, error)
	ExtractDOCX(data []byte) (string, error)
}

// DefaultExtractor uses MuPDF for PDF and the OOXML reader for DOCX.
type DefaultExtractor struct{}

// ExtractPDF implements Extractor.
func (DefaultExtractor) ExtractPDF(data []byte) (string, error) {
	text, _, err := PDFText(data)
	return text, err
}

// ExtractPDFFile implements Extractor.
func (DefaultExtractor) ExtractPDFFile(path string) (string, error) {
	text, _, err := PDFTextFromFile(path)
	return text, err
}

// ExtractDOCX implements Extractor.
func (DefaultExtractor) ExtractDOCX(data []byte) (string, error) {
	return DOCXText(data)
}

// ExtractBytes extracts and cleans the text of a document whose format is
// sniffed from its content and name.
func ExtractBytes(x Extractor, data []byte, name string) (string, *Metadata, error) {
	format, mime := Detect(data, name)

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = x.ExtractPDF(data)
	case FormatDOCX:
		text, err = x.ExtractDOCX(data)
	case FormatHTML:
		text, err = fetch.ExtractMainText(DecodeText(data), fetch.DefaultTextSelectors())
	case FormatText:
		text = DecodeText(data)
	default:
		return "", nil, &ExtractionError{Format: format, Source: name, Message: mime, Cause: ErrUnsupportedFormat}
	}
	if err != nil {
		return "", nil, err
	}

	cleaned := CleanText(text)
	meta := NewMetadata(cleaned, name)
	meta.Format = format
	meta.ContentType = mime
	meta.Size = len(data)
	return cleaned, meta, nil
}

// IngestFromFile reads a document from disk and returns its cleaned text with metadata
func IngestFromFile(x Extractor, path string) (string, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ExtractBytes(x, content, filepath.Base(path))
}
