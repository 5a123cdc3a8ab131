// Package composer assembles the generation prompt from a structure
// template, the matched knowledge-base chunks and the user's requirements.
package composer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jonathan/search-wizard/internal/prompts"
	"github.com/jonathan/search-wizard/internal/types"
)

// MaxChunkLength is the longest knowledge-base item placed in a prompt, in characters
const MaxChunkLength = 5000

// TruncationMarker is appended to knowledge-base items cut at MaxChunkLength
const TruncationMarker = "\n[Content truncated due to length...]\n"

const defaultDocumentType = "professional"

// Section names, in prompt order
const (
	SectionPreamble     = "preamble"
	SectionStructure    = "document structure"
	SectionInstructions = "technical instructions"
	SectionCompany      = "knowledge base: company"
	SectionRole         = "knowledge base: role"
	SectionRequirements = "user requirements"
	SectionClosing      = "closing instructions"
)

// Input is everything a prompt is built from
type Input struct {
	// DocumentType overrides the template's document_type in the preamble
	DocumentType string
	Template     types.StructureTemplate
	Requirements string
	Company      []types.ContentChunk
	Role         []types.ContentChunk
}

// Compose builds the final prompt text. The output is a pure function of its
// arguments.
func Compose(template types.StructureTemplate, requirements string, company, role []types.ContentChunk) (string, error) {
	return ComposeInput(Input{
		Template:     template,
		Requirements: requirements,
		Company:      company,
		Role:         role,
	})
}

// ComposeInput is Compose with an explicit document type
func ComposeInput(in Input) (string, error) {
	sections, err := Sections(in)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, s := range sections {
		sb.WriteString(s.Body)
	}
	return sb.String(), nil
}

// Sections returns the named prompt blocks in their fixed order. Empty
// knowledge-base halves and empty requirements are omitted.
func Sections(in Input) ([]types.PromptSection, error) {
	structure, err := serializeTemplate(in.Template)
	if err != nil {
		return nil, err
	}

	docType := strings.TrimSpace(in.DocumentType)
	if docType == "" {
		docType = in.Template.DocumentType()
	}
	if docType == "" {
		docType = defaultDocumentType
	}

	get := func(key string) (string, error) {
		return prompts.Get(prompts.GenerationFile, key)
	}

	var sections []types.PromptSection
	add := func(name, body string) {
		sections = append(sections, types.PromptSection{Name: name, Body: body})
	}

	preamble, err := get("preamble")
	if err != nil {
		return nil, err
	}
	add(SectionPreamble, prompts.Format(preamble, map[string]string{"DocumentType": docType}))

	header, err := get("structure-header")
	if err != nil {
		return nil, err
	}
	footer, err := get("structure-footer")
	if err != nil {
		return nil, err
	}
	add(SectionStructure, "\n"+header+structure+"\n"+footer)

	instructions, err := get("technical-instructions")
	if err != nil {
		return nil, err
	}
	add(SectionInstructions, "\n"+instructions)

	kbHeader, err := get("knowledge-header")
	if err != nil {
		return nil, err
	}
	companyHeader, err := get("company-header")
	if err != nil {
		return nil, err
	}
	roleHeader, err := get("role-header")
	if err != nil {
		return nil, err
	}

	companyBody := kbHeader
	if len(in.Company) > 0 {
		companyBody += companyHeader + renderChunks(in.Company)
	}
	add(SectionCompany, companyBody)

	if len(in.Role) > 0 {
		add(SectionRole, roleHeader+renderChunks(in.Role))
	}

	if strings.TrimSpace(in.Requirements) != "" {
		req, err := get("requirements")
		if err != nil {
			return nil, err
		}
		add(SectionRequirements, prompts.Format(req, map[string]string{"Requirements": in.Requirements}))
	}

	closing, err := get("closing")
	if err != nil {
		return nil, err
	}
	add(SectionClosing, closing)

	return sections, nil
}

// Truncate bounds a single knowledge-base item. Text of MaxChunkLength
// characters or fewer is returned as is.
func Truncate(text string) string {
	r := []rune(text)
	if len(r) <= MaxChunkLength {
		return text
	}
	return string(r[:MaxChunkLength]) + TruncationMarker
}

func renderChunks(chunks []types.ContentChunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString("\n")
		sb.WriteString(c.ArtifactName)
		sb.WriteString(":\n")
		sb.WriteString(Truncate(c.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}

func serializeTemplate(t types.StructureTemplate) (string, error) {
	if len(bytes.TrimSpace(t)) == 0 {
		return "", &ConfigurationError{Field: "template", Message: "structure template is empty"}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, t, "", "  "); err != nil {
		return "", &ConfigurationError{Field: "template", Message: "structure template is not serializable JSON", Cause: err}
	}
	return buf.String(), nil
}
