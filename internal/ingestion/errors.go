package ingestion

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is wrapped by ExtractionError when no extractor
// handles the detected format
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrNoText is wrapped by ExtractionError when a document parses but holds no text
var ErrNoText = errors.New("document contained no extractable text")

// ExtractionError reports that document bytes could not be turned into text
type ExtractionError struct {
	Format  Format
	Source  string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	src := e.Source
	if src == "" {
		src = "document"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s extraction failed for %s: %s: %v", e.Format, src, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s extraction failed for %s: %s", e.Format, src, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
