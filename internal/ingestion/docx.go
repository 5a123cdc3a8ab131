package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// DOCXText extracts paragraph text from word/document.xml of a DOCX archive.
// Paragraphs become lines; tabs and breaks are kept.
func DOCXText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "not a zip archive", Cause: err}
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "word/document.xml missing"}
	}

	rc, err := doc.Open()
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "failed to open document part", Cause: err}
	}
	defer func() { _ = rc.Close() }()

	text, err := wordprocessingText(rc)
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "malformed document XML", Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Format: FormatDOCX, Message: "no paragraphs with text", Cause: ErrNoText}
	}
	return text, nil
}

func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
