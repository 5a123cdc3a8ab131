package structure

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/jonathan/search-wizard/internal/types"
)

type section struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	TypicalContent string `json:"typical_content"`
}

type template struct {
	DocumentType    string    `json:"document_type"`
	Sections        []section `json:"sections"`
	OverallTone     string    `json:"overall_tone"`
	FormattingNotes string    `json:"formatting_notes"`
}

var defaultSections = []section{
	{Name: "Title", Description: "Document title", TypicalContent: "Main heading"},
	{Name: "Summary", Description: "Executive summary", TypicalContent: "Brief overview"},
	{Name: "Main Content", Description: "Core information", TypicalContent: "Details and analysis"},
	{Name: "Conclusion", Description: "Closing remarks", TypicalContent: "Final thoughts and next steps"},
}

// InferDocumentType guesses a document type from an example file name
func InferDocumentType(filename string) string {
	name := strings.ToLower(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	switch {
	case strings.Contains(name, "role") || strings.Contains(name, "job"):
		return "Job Description"
	case strings.Contains(name, "report"):
		return "Analytical Report"
	case strings.Contains(name, "briefing"):
		return "Briefing Document"
	}
	return "Generic Document"
}

// Default is the canned four-section template used when analysis fails
func Default(filename string) types.StructureTemplate {
	data, err := json.Marshal(template{
		DocumentType:    InferDocumentType(filename),
		Sections:        defaultSections,
		OverallTone:     "Professional",
		FormattingNotes: "Clean, organized layout",
	})
	if err != nil {
		panic(err)
	}
	return types.StructureTemplate(data)
}
