package server

import (
	"net/http"
	"time"

	"github.com/jonathan/search-wizard/internal/generation"
	"github.com/jonathan/search-wizard/internal/store"
)

// documentResponse is the body returned for a generated document
type documentResponse struct {
	ID            string    `json:"id"`
	DocumentType  string    `json:"document_type"`
	ProjectID     string    `json:"project_id,omitempty"`
	StructureName string    `json:"structure_name,omitempty"`
	HTML          string    `json:"html_content"`
	Timestamp     time.Time `json:"timestamp"`
}

func newDocumentResponse(doc *store.Document) documentResponse {
	return documentResponse{
		ID:            doc.ID.String(),
		DocumentType:  doc.DocumentType,
		ProjectID:     doc.ProjectID,
		StructureName: doc.StructureName,
		HTML:          doc.HTML,
		Timestamp:     doc.CreatedAt,
	}
}

// handleGenerate generates a document and returns it once stored
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generation.Request
	if err := s.decode(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	req.OwnerID = s.owner(r)

	doc, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, newDocumentResponse(doc))
}

// handleGenerateStream generates a document and reports each stage as a
// server-sent "progress" event, ending with "complete" or "error".
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req generation.Request
	if err := s.decode(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	req.OwnerID = s.owner(r)

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	req.Progress = func(event generation.ProgressEvent) {
		sse.WriteEvent("progress", event) //nolint:errcheck
	}

	doc, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		sse.WriteError(err)
		return
	}
	sse.WriteComplete(newDocumentResponse(doc))
}
