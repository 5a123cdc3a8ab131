// Package types holds the data shared by the resolution, matching and prompt
// composition stages of a generation request.
package types

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which half of the knowledge base an artifact belongs to
type Kind string

const (
	// KindCompany marks artifacts describing the organisation
	KindCompany Kind = "company"
	// KindRole marks artifacts describing the position or engagement
	KindRole Kind = "role"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindCompany || k == KindRole
}

// Artifact is a named piece of source content supplied with a request.
// At least one of InlineContent, FileURL or FilePath is expected to be set.
type Artifact struct {
	Name          string `json:"name" validate:"required"`
	Kind          Kind   `json:"kind,omitempty"`
	InlineContent string `json:"description,omitempty"`
	FileURL       string `json:"file_url,omitempty"`
	FilePath      string `json:"file_path,omitempty"`
}

// ContentChunk is a bounded slice of resolved artifact text.
// PartIndex and PartCount are zero when the artifact was not split.
type ContentChunk struct {
	ArtifactName string `json:"artifact_name"`
	Kind         Kind   `json:"kind"`
	PartIndex    int    `json:"part_index,omitempty"`
	PartCount    int    `json:"part_count,omitempty"`
	Text         string `json:"text"`
}

// IsPart reports whether the chunk is one piece of a split artifact
func (c ContentChunk) IsPart() bool {
	return c.PartCount > 0
}

// StructureTemplate is the LLM-derived description of a document layout.
// It is kept as raw JSON so key order survives a round trip.
type StructureTemplate json.RawMessage

// MarshalJSON emits the template verbatim
func (t StructureTemplate) MarshalJSON() ([]byte, error) {
	if len(t) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(t).MarshalJSON()
}

// UnmarshalJSON stores a copy of the raw bytes
func (t *StructureTemplate) UnmarshalJSON(data []byte) error {
	if t == nil {
		return fmt.Errorf("types.StructureTemplate: UnmarshalJSON on nil pointer")
	}
	*t = append((*t)[0:0], data...)
	return nil
}

// DocumentType reads the top-level document_type field, if any
func (t StructureTemplate) DocumentType() string {
	var head struct {
		DocumentType string `json:"document_type"`
	}
	if err := json.Unmarshal(t, &head); err != nil {
		return ""
	}
	return head.DocumentType
}

// PromptSection is one named block of a composed prompt
type PromptSection struct {
	Name string
	Body string
}
