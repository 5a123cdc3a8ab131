// Package generation runs a document generation request end to end: it
// resolves the caller's artifacts into a knowledge base, looks up the
// structure template for the document type, composes the prompt, calls the
// model and stores the resulting HTML document.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/artifact"
	"github.com/jonathan/search-wizard/internal/chunking"
	"github.com/jonathan/search-wizard/internal/composer"
	"github.com/jonathan/search-wizard/internal/fetch"
	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/types"
)

// DefaultTimeout bounds the generation call
const DefaultTimeout = 5 * time.Minute

// ProgressEvent reports that a stage of a request has started or finished
type ProgressEvent struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// ProgressCallback is called as a request moves through its stages
type ProgressCallback func(event ProgressEvent)

// Request is one generation request
type Request struct {
	OwnerID          string           `json:"-"`
	DocumentType     string           `json:"document_type" validate:"required"`
	ProjectID        string           `json:"project_id,omitempty"`
	CompanyArtifacts []types.Artifact `json:"company_artifacts" validate:"dive"`
	RoleArtifacts    []types.Artifact `json:"role_artifacts" validate:"dive"`
	Requirements     string           `json:"user_requirements"`
	// Progress receives this request's stage events in addition to the
	// service-wide callback
	Progress ProgressCallback `json:"-"`
}

// Options configures a Service
type Options struct {
	Resolver *artifact.Resolver
	Store    store.Store
	Client   llm.Client
	// Fetcher downloads templates that are stored by URL only
	Fetcher fetch.Fetcher
	// SupabaseKey authorizes downloads from Supabase storage
	SupabaseKey string
	Timeout     time.Duration
	Chunking    chunking.Options
	MaxTokens   int
	Logger      *zap.Logger
	OnProgress  ProgressCallback
}

// Service generates documents
type Service struct {
	resolver   *artifact.Resolver
	store      store.Store
	client     llm.Client
	fetcher     fetch.Fetcher
	supabaseKey string
	timeout     time.Duration
	chunking    chunking.Options
	maxTokens   int
	log         *zap.Logger
	onProgress  ProgressCallback
	now         func() time.Time
}

// NewService creates a Service. A store and a client are required.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("generation: store is required")
	}
	if opts.Client == nil {
		return nil, errors.New("generation: llm client is required")
	}

	s := &Service{
		resolver:    opts.Resolver,
		store:       opts.Store,
		client:      opts.Client,
		fetcher:     opts.Fetcher,
		supabaseKey: opts.SupabaseKey,
		timeout:     opts.Timeout,
		chunking:    opts.Chunking,
		maxTokens:   opts.MaxTokens,
		log:         opts.Logger,
		onProgress:  opts.OnProgress,
		now:         time.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.resolver == nil {
		s.resolver = artifact.NewResolver(artifact.Options{Logger: s.log})
	}
	if s.fetcher == nil {
		s.fetcher = fetch.Plain(fetch.DefaultOptions())
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.chunking.MaxLength <= 0 {
		s.chunking = chunking.DefaultOptions()
	}
	return s, nil
}

// Generate runs req and returns the stored document. Failures are returned
// as a *StageError naming the step that failed; a partial document is never
// returned.
func (s *Service) Generate(ctx context.Context, req Request) (*store.Document, error) {
	docType := strings.TrimSpace(req.DocumentType)
	log := s.log.With(zap.String("document_type", docType), zap.String("owner", req.OwnerID))
	fail := func(stage Stage, err error) error {
		log.Error("generation failed", zap.String("stage", string(stage)), zap.Error(err))
		return &StageError{Stage: stage, DocumentType: docType, Err: err}
	}

	if docType == "" {
		return nil, fail(StageStructureLookup, &composer.ConfigurationError{Field: "document_type", Message: "is required"})
	}

	s.emit(req, StageStructureLookup, "looking up structure "+docType)
	structure, err := store.LookupStructure(ctx, s.store, req.OwnerID, docType)
	if err != nil {
		return nil, fail(StageStructureLookup, err)
	}
	template, err := s.template(ctx, structure)
	if err != nil {
		return nil, fail(StageStructureLookup, err)
	}

	s.emit(req, StageResolution, fmt.Sprintf("resolving %d company and %d role artifacts",
		len(req.CompanyArtifacts), len(req.RoleArtifacts)))
	base, err := s.resolver.BuildBase(ctx, req.CompanyArtifacts, req.RoleArtifacts, s.chunking)
	if err != nil {
		return nil, fail(StageResolution, err)
	}
	company := s.resolver.Ground(base, artifactNames(req.CompanyArtifacts), types.KindCompany)
	role := s.resolver.Ground(base, artifactNames(req.RoleArtifacts), types.KindRole)
	log.Info("knowledge base built",
		zap.Int("chunks", base.Len()),
		zap.Int("company_chunks", len(company)),
		zap.Int("role_chunks", len(role)))

	s.emit(req, StageComposition, "composing prompt")
	prompt, err := composer.ComposeInput(composer.Input{
		DocumentType: docType,
		Template:     template,
		Requirements: req.Requirements,
		Company:      company,
		Role:         role,
	})
	if err != nil {
		return nil, fail(StageComposition, err)
	}

	s.emit(req, StageGeneration, "calling "+string(s.client.Provider()))
	started := s.now()
	reply, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, fail(StageGeneration, err)
	}
	html, err := EnsureHTMLDocument(reply, docType)
	if err != nil {
		return nil, fail(StageGeneration, err)
	}
	log.Info("document generated",
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("html_chars", len(html)),
		zap.Duration("elapsed", s.now().Sub(started)))

	s.emit(req, StagePersistence, "saving document")
	doc := &store.Document{
		ID:            uuid.New(),
		OwnerID:       req.OwnerID,
		ProjectID:     req.ProjectID,
		DocumentType:  docType,
		StructureName: structure.Name,
		HTML:          html,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fail(StagePersistence, err)
	}
	if count, err := s.store.IncrementUsage(ctx, structure.ID, 1); err != nil {
		log.Warn("usage count not updated", zap.String("structure", structure.Name), zap.Error(err))
	} else {
		log.Debug("structure used", zap.String("structure", structure.Name), zap.Int("usage_count", count))
	}

	return doc, nil
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.client.Complete(ctx, llm.Request{
		Prompt:    prompt,
		Tier:      llm.TierAdvanced,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", errors.New("model returned an empty response")
	}
	return reply, nil
}

// template returns the stored template, downloading it from the structure's
// file URL when only the URL was saved.
func (s *Service) template(ctx context.Context, st *store.Structure) (types.StructureTemplate, error) {
	if len(st.Template) > 0 && string(st.Template) != "null" {
		return st.Template, nil
	}
	if st.FileURL == "" {
		return nil, &composer.ConfigurationError{Field: "structure " + st.Name, Message: "has neither a template nor a file URL"}
	}

	target, headers := fetch.PrepareURL(st.FileURL, s.supabaseKey)
	res, err := s.fetcher.Fetch(ctx, target, headers)
	if err != nil {
		return nil, fmt.Errorf("downloading structure file: %w", err)
	}
	body := strings.TrimSpace(res.Text())
	if !json.Valid([]byte(body)) {
		return nil, &composer.ConfigurationError{Field: "structure " + st.Name, Message: "file is not valid JSON"}
	}
	return types.StructureTemplate(body), nil
}

func (s *Service) emit(req Request, stage Stage, message string) {
	event := ProgressEvent{Stage: stage, Message: message}
	if s.onProgress != nil {
		s.onProgress(event)
	}
	if req.Progress != nil {
		req.Progress(event)
	}
}

func artifactNames(artifacts []types.Artifact) []string {
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, a.Name)
	}
	return names
}
