package ingestion

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFText extracts the text of every page, separated by blank lines.
// Pages that fail to extract are skipped.
func PDFText(data []byte) (string, int, error) {
	if !HasPDFSignature(data) {
		return "", 0, &ExtractionError{Format: FormatPDF, Message: "content does not appear to be a valid PDF file"}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", 0, &ExtractionError{Format: FormatPDF, Message: "failed to open PDF", Cause: err}
	}
	defer func() { _ = doc.Close() }()

	return pdfPages(doc, "")
}

// PDFTextFromFile is PDFText for a document on disk.
func PDFTextFromFile(path string) (string, int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", 0, &ExtractionError{Format: FormatPDF, Source: path, Message: "failed to open PDF", Cause: err}
	}
	defer func() { _ = doc.Close() }()

	return pdfPages(doc, path)
}

func pdfPages(doc *fitz.Document, source string) (string, int, error) {
	var sb strings.Builder
	numPages := doc.NumPage()

	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		if i < numPages-1 {
			sb.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", numPages, &ExtractionError{Format: FormatPDF, Source: source, Message: "no text on any page", Cause: ErrNoText}
	}
	return text, numPages, nil
}

// PageImages renders up to maxPages pages as PNG at the given DPI.
func PageImages(data []byte, maxPages int, dpi float64) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &ExtractionError{Format: FormatPDF, Message: "failed to open PDF", Cause: err}
	}
	defer func() { _ = doc.Close() }()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	images := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		png, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return nil, &ExtractionError{Format: FormatPDF, Message: fmt.Sprintf("failed to render page %d", i+1), Cause: err}
		}
		images = append(images, png)
	}
	return images, nil
}
