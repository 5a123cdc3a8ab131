package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/search-wizard/internal/types"
)

// Structure is a named document template owned by a user
type Structure struct {
	ID           uuid.UUID               `json:"id"`
	OwnerID      string                  `json:"owner_id"`
	Name         string                  `json:"name"`
	DocumentType string                  `json:"document_type"`
	Template     types.StructureTemplate `json:"template"`
	FileURL      string                  `json:"file_url,omitempty"`
	UsageCount   int                     `json:"usage_count"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Document is a generated HTML document
type Document struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       string    `json:"owner_id"`
	ProjectID     string    `json:"project_id,omitempty"`
	DocumentType  string    `json:"document_type"`
	StructureName string    `json:"structure_name,omitempty"`
	HTML          string    `json:"html_content,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentSummary is a lightweight view of a document for listing
type DocumentSummary struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    string    `json:"project_id,omitempty"`
	DocumentType string    `json:"document_type"`
	Size         int       `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentFilters holds optional filters for listing documents
type DocumentFilters struct {
	ProjectID string
	Limit     int
}

// DefaultListLimit caps list results when no limit is given
const DefaultListLimit = 50
