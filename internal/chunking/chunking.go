// Package chunking splits oversized artifact text into overlapping windows.
package chunking

import (
	"fmt"

	"github.com/jonathan/search-wizard/internal/types"
)

const (
	// DefaultMaxLength is the largest window emitted, in characters
	DefaultMaxLength = 5000
	// DefaultOverlap is how many characters a window repeats from its predecessor
	DefaultOverlap = 200
)

// Options controls window sizing
type Options struct {
	MaxLength int
	Overlap   int
}

// DefaultOptions returns the standard 5000/200 split
func DefaultOptions() Options {
	return Options{MaxLength: DefaultMaxLength, Overlap: DefaultOverlap}
}

// PreconditionError is returned when the window cannot make forward progress
type PreconditionError struct {
	MaxLength int
	Overlap   int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("chunking requires max_length > overlap >= 0 (max_length=%d, overlap=%d)", e.MaxLength, e.Overlap)
}

// Split cuts text into windows of at most maxLength characters. Each window
// after the first begins overlap characters before the end of the previous one.
// Lengths are measured in runes so multi-byte text is never cut mid-character.
func Split(text string, maxLength, overlap int) ([]string, error) {
	if maxLength <= overlap || overlap < 0 {
		return nil, &PreconditionError{MaxLength: maxLength, Overlap: overlap}
	}

	runes := []rune(text)
	if len(runes) <= maxLength {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := min(start+maxLength, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks, nil
}

// Named splits an artifact's text into content chunks. Text at or under the
// limit yields a single chunk carrying the artifact's own name; longer text
// yields chunks named "<name> (part i/N)".
func Named(name string, kind types.Kind, text string, opts Options) ([]types.ContentChunk, error) {
	parts, err := Split(text, opts.MaxLength, opts.Overlap)
	if err != nil {
		return nil, err
	}

	if len(parts) == 1 {
		return []types.ContentChunk{{ArtifactName: name, Kind: kind, Text: parts[0]}}, nil
	}

	chunks := make([]types.ContentChunk, len(parts))
	for i, part := range parts {
		chunks[i] = types.ContentChunk{
			ArtifactName: PartName(name, i+1, len(parts)),
			Kind:         kind,
			PartIndex:    i + 1,
			PartCount:    len(parts),
			Text:         part,
		}
	}
	return chunks, nil
}

// PartName formats the name of the i-th of n chunks
func PartName(name string, i, n int) string {
	return fmt.Sprintf("%s (part %d/%d)", name, i, n)
}

// Reassemble joins chunks produced by Split with the same overlap,
// dropping the repeated prefix of every chunk after the first.
func Reassemble(chunks []string, overlap int) string {
	var out []rune
	for i, c := range chunks {
		r := []rune(c)
		if i > 0 {
			r = r[min(overlap, len(r)):]
		}
		out = append(out, r...)
	}
	return string(out)
}
