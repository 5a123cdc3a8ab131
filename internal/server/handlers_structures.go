package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/fetch"
	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/schemas"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/structure"
	"github.com/jonathan/search-wizard/internal/types"
)

type analyzeStructureRequest struct {
	Name         string `json:"name" validate:"required"`
	DocumentType string `json:"document_type"`
	Text         string `json:"text" validate:"required_without=FileURL"`
	FileURL      string `json:"file_url" validate:"omitempty,url"`
}

type putStructureRequest struct {
	DocumentType string          `json:"document_type"`
	Template     json.RawMessage `json:"template" validate:"required_without=FileURL"`
	FileURL      string          `json:"file_url" validate:"omitempty,url"`
}

// handleAnalyzeStructure derives a template from example text or a remote
// example file and saves it under the given name
func (s *Server) handleAnalyzeStructure(w http.ResponseWriter, r *http.Request) {
	var req analyzeStructureRequest
	if err := s.decode(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	var (
		template types.StructureTemplate
		err      error
	)
	if req.FileURL != "" {
		template, err = s.analyzeURL(r, req.FileURL)
		if err != nil {
			s.failure(w, r, err)
			return
		}
	} else {
		template = s.extractor.ExtractWithFallback(r.Context(), req.Text, req.Name)
	}

	st, err := s.saveAnalyzed(r, req.Name, req.DocumentType, template, req.FileURL)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, st)
}

func (s *Server) analyzeURL(r *http.Request, fileURL string) (types.StructureTemplate, error) {
	target, headers := fetch.PrepareURL(fileURL, s.supabaseKey)
	res, err := s.fetcher.Fetch(r.Context(), target, headers)
	if err != nil {
		return nil, &ErrValidation{Field: "file_url", Message: err.Error()}
	}

	filename := path.Base(strings.SplitN(fileURL, "?", 2)[0])
	return s.extractor.AnalyzeFile(r.Context(), s.ingest, s.pages, structure.Document{Filename: filename, Data: res.Body})
}

// handleAnalyzeFile stores an uploaded example file, analyzes it and saves
// the template
func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.failure(w, r, &ErrValidation{Field: "file", Message: fmt.Sprintf("invalid upload: %v", err)})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.failure(w, r, &ErrValidation{Field: "file", Message: "is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.failure(w, r, &ErrValidation{Field: "file", Message: err.Error()})
		return
	}
	if len(data) == 0 {
		s.failure(w, r, &ErrValidation{Field: "file", Message: "is empty"})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(path.Base(header.Filename), path.Ext(header.Filename))
	}

	owner := s.owner(r)
	format, mime := ingestion.Detect(data, header.Filename)
	key, err := s.blobs.Put(r.Context(), owner, header.Filename, data, mime)
	if err != nil {
		s.failure(w, r, fmt.Errorf("storing upload: %w", err))
		return
	}
	s.log.Info("example uploaded",
		zap.String("owner", owner),
		zap.String("key", key),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)))

	template, err := s.extractor.AnalyzeFile(r.Context(), s.ingest, s.pages, structure.Document{Filename: header.Filename, Data: data})
	if err != nil {
		s.failure(w, r, err)
		return
	}

	st, err := s.saveAnalyzed(r, name, r.FormValue("document_type"), template, s.blobs.Location(key))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, st)
}

// saveAnalyzed stores a template under name. Generation looks structures up
// by document type, so the type defaults to the name.
func (s *Server) saveAnalyzed(r *http.Request, name, docType string, template types.StructureTemplate, fileURL string) (*store.Structure, error) {
	docType = strings.TrimSpace(docType)
	if docType == "" {
		docType = name
	}
	st := &store.Structure{
		OwnerID:      s.owner(r),
		Name:         name,
		DocumentType: docType,
		Template:     template,
		FileURL:      fileURL,
	}
	if err := s.store.SaveStructure(r.Context(), st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Server) handleListStructures(w http.ResponseWriter, r *http.Request) {
	structures, err := s.store.ListStructures(r.Context(), s.owner(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if structures == nil {
		structures = []store.Structure{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"structures": structures,
		"count":      len(structures),
	})
}

func (s *Server) handleGetStructure(w http.ResponseWriter, r *http.Request) {
	st, err := store.LookupStructure(r.Context(), s.store, s.owner(r), r.PathValue("name"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, st)
}

// handlePutStructure saves a template supplied by the caller. Templates are
// checked against the structure schema before they are stored.
func (s *Server) handlePutStructure(w http.ResponseWriter, r *http.Request) {
	var req putStructureRequest
	if err := s.decode(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	template := types.StructureTemplate(req.Template)
	if len(template) > 0 {
		if err := schemas.ValidateStructure(template); err != nil {
			s.failure(w, r, err)
			return
		}
	} else {
		analyzed, err := s.analyzeURL(r, req.FileURL)
		if err != nil {
			s.failure(w, r, err)
			return
		}
		template = analyzed
	}

	name := r.PathValue("name")
	docType := strings.TrimSpace(req.DocumentType)
	if docType == "" {
		docType = name
	}
	st := &store.Structure{
		OwnerID:      s.owner(r),
		Name:         name,
		DocumentType: docType,
		Template:     template,
		FileURL:      req.FileURL,
	}
	if err := s.store.SaveStructure(r.Context(), st); err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStructure(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStructure(r.Context(), s.owner(r), r.PathValue("name")); err != nil {
		s.failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
