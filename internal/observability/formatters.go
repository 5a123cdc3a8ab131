// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/search-wizard/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// previewLength is how much of a chunk's text is shown
	previewLength = 40
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if utf8.RuneCountInString(line) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintChunks outputs one line per chunk with its label, size and the start
// of its text.
func (p *Printer) PrintChunks(chunks []types.ContentChunk) {
	if len(chunks) == 0 {
		return
	}

	var sb strings.Builder
	total := 0
	for i, c := range chunks {
		label := c.ArtifactName
		if c.IsPart() {
			label = fmt.Sprintf("%s (part %d/%d)", c.ArtifactName, c.PartIndex, c.PartCount)
		}
		n := utf8.RuneCountInString(c.Text)
		total += n
		sb.WriteString(fmt.Sprintf("%d. %s [%s] %d chars\n", i+1, label, c.Kind, n))
		sb.WriteString(fmt.Sprintf("   %q\n", preview(c.Text)))
	}
	sb.WriteString(fmt.Sprintf("\nTotal: %d chunks, %d chars", len(chunks), total))

	p.printBox("CONTENT CHUNKS", sb.String())
}

// PrintStructure outputs a human-readable summary of a structure template.
// Templates that are not JSON objects are skipped.
func (p *Printer) PrintStructure(name string, template types.StructureTemplate) {
	var t struct {
		DocumentType string `json:"document_type"`
		OverallTone  string `json:"overall_tone"`
		Sections     []struct {
			Name        string `json:"name"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(template, &t); err != nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", name))
	if t.DocumentType != "" {
		sb.WriteString(fmt.Sprintf("Type:     %s\n", t.DocumentType))
	}
	if t.OverallTone != "" {
		sb.WriteString(fmt.Sprintf("Tone:     %s\n", t.OverallTone))
	}
	sb.WriteString(fmt.Sprintf("\nSections (%d):", len(t.Sections)))
	for _, s := range t.Sections {
		title := s.Name
		if title == "" {
			title = s.Title
		}
		if s.Description != "" {
			sb.WriteString(fmt.Sprintf("\n  • %s: %s", title, s.Description))
		} else {
			sb.WriteString(fmt.Sprintf("\n  • %s", title))
		}
	}

	p.printBox("DOCUMENT STRUCTURE", sb.String())
}

// PrintStage outputs a single progress line
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) PrintStage(stage, message string) {
	fmt.Fprintf(p.out, "→ [%s] %s\n", stage, message)
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}
