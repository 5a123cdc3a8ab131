package ingestion

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a document encoding the extractors understand
type Format string

// Known formats
const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatHTML    Format = "html"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// pdfSignatureWindow is how far into a body the %PDF header may appear
const pdfSignatureWindow = 1024

// HasPDFSignature reports whether data carries a %PDF header within its first KB.
func HasPDFSignature(data []byte) bool {
	return bytes.Contains(data[:min(len(data), pdfSignatureWindow)], []byte("%PDF"))
}

// LooksLikeRawPDF reports whether text is undecoded PDF structure rather than
// extracted text: the trailer, xref and startxref keywords all present together
// with a NUL or replacement character.
func LooksLikeRawPDF(text string) bool {
	if !strings.Contains(text, "trailer") || !strings.Contains(text, "xref") || !strings.Contains(text, "startxref") {
		return false
	}
	return strings.ContainsRune(text, '\x00') || strings.ContainsRune(text, '�')
}

// FormatFromContentType maps a Content-Type header and file name to a format.
// It returns FormatUnknown when neither is conclusive.
func FormatFromContentType(contentType, name string) Format {
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(filepath.Ext(stripQuery(name)))

	switch {
	case strings.Contains(ct, "pdf") || ext == ".pdf":
		return FormatPDF
	case strings.Contains(ct, "wordprocessingml") || ext == ".docx":
		return FormatDOCX
	case strings.Contains(ct, "html") || ext == ".html" || ext == ".htm":
		return FormatHTML
	case strings.HasPrefix(ct, "text/") || strings.Contains(ct, "json") || strings.Contains(ct, "xml"),
		ext == ".txt" || ext == ".md" || ext == ".json" || ext == ".csv":
		return FormatText
	}
	return FormatUnknown
}

// Detect sniffs data with mimetype, falling back to the name's extension.
func Detect(data []byte, name string) (Format, string) {
	mt := mimetype.Detect(data)
	mime := mt.String()

	switch {
	case mt.Is("application/pdf"):
		return FormatPDF, mime
	case mt.Is(docxMIME):
		return FormatDOCX, mime
	case mt.Is("text/html"):
		return FormatHTML, mime
	}

	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			if f := FormatFromContentType("", name); f != FormatUnknown {
				return f, mime
			}
			return FormatText, mime
		}
	}

	if f := FormatFromContentType("", name); f != FormatUnknown {
		return f, mime
	}
	return FormatUnknown, mime
}

func stripQuery(name string) string {
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		return name[:idx]
	}
	return name
}
