package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/store"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filters := store.DocumentFilters{ProjectID: r.URL.Query().Get("project_id")}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.failure(w, r, &ErrValidation{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		filters.Limit = limit
	}

	docs, err := s.store.ListDocuments(r.Context(), s.owner(r), filters)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if docs == nil {
		docs = []store.DocumentSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newDocumentResponse(doc))
}

// handleDocumentPDF prints a stored document with headless Chrome
func (s *Server) handleDocumentPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdf == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "PDF rendering is not configured")
		return
	}

	doc, err := s.document(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	pdf, err := s.pdf.PDF(r.Context(), doc.HTML)
	if err != nil {
		s.failure(w, r, fmt.Errorf("rendering PDF: %w", err))
		return
	}
	s.log.Debug("document rendered", zap.String("id", doc.ID.String()), zap.Int("bytes", len(pdf)))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.ID.String()+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) document(r *http.Request) (*store.Document, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return s.store.GetDocument(r.Context(), s.owner(r), id)
}
