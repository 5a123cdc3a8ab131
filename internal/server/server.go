package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/blob"
	"github.com/jonathan/search-wizard/internal/config"
	"github.com/jonathan/search-wizard/internal/fetch"
	"github.com/jonathan/search-wizard/internal/generation"
	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/server/middleware"
	"github.com/jonathan/search-wizard/internal/server/ratelimit"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/structure"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 10 << 20

// maxUploadBytes bounds multipart uploads
const maxUploadBytes = 32 << 20

// PDFRenderer prints a stored HTML document
type PDFRenderer interface {
	PDF(ctx context.Context, html string) ([]byte, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	store       store.Store
	generator   *generation.Service
	extractor   *structure.Extractor
	ingest      ingestion.Extractor
	pages       structure.PageRenderer
	blobs       blob.Store
	pdf         PDFRenderer
	fetcher     fetch.Fetcher
	supabaseKey string
	provider    llm.Provider
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	validate    *validator.Validate
	log         *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port int
	// JWT enables bearer-token authentication; nil trusts the X-User-ID header
	JWT         *config.JWTConfig
	RateLimit   *ratelimit.Config
	SupabaseKey string
}

// Deps are the collaborators the handlers call. Store, Generator and
// Extractor are required.
type Deps struct {
	Store     store.Store
	Generator *generation.Service
	Extractor *structure.Extractor
	// Ingest extracts uploaded example files; nil uses the MuPDF extractor
	Ingest ingestion.Extractor
	// Pages renders PDF pages for vision analysis; nil analyzes text only
	Pages    structure.PageRenderer
	Blobs    blob.Store
	PDF      PDFRenderer
	Fetcher  fetch.Fetcher
	Provider llm.Provider
	Logger   *zap.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Generator == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("server: store, generator and extractor are required")
	}

	s := &Server{
		store:       deps.Store,
		generator:   deps.Generator,
		extractor:   deps.Extractor,
		ingest:      deps.Ingest,
		pages:       deps.Pages,
		blobs:       deps.Blobs,
		pdf:         deps.PDF,
		fetcher:     deps.Fetcher,
		supabaseKey: cfg.SupabaseKey,
		provider:    deps.Provider,
		validate:    validator.New(),
		log:         deps.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.ingest == nil {
		s.ingest = ingestion.DefaultExtractor{}
	}
	if s.blobs == nil {
		s.blobs = blob.NewMemory()
	}
	if s.fetcher == nil {
		s.fetcher = fetch.Plain(fetch.DefaultOptions())
	}
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	}

	s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /generate-document", s.handleGenerate)
	mux.HandleFunc("POST /generate-document/stream", s.handleGenerateStream)

	mux.HandleFunc("POST /analyze-structure", s.handleAnalyzeStructure)
	mux.HandleFunc("POST /analyze-file", s.handleAnalyzeFile)

	mux.HandleFunc("GET /structures", s.handleListStructures)
	mux.HandleFunc("GET /structures/{name}", s.handleGetStructure)
	mux.HandleFunc("PUT /structures/{name}", s.handlePutStructure)
	mux.HandleFunc("DELETE /structures/{name}", s.handleDeleteStructure)

	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	mux.HandleFunc("GET /documents/{id}/pdf", s.handleDocumentPDF)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(s.withAuth(mux))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // generation calls run for minutes
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware chain, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr), zap.String("provider", string(s.provider)))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.Close()

	s.log.Info("server stopped")
	return nil
}

// Close stops background work owned by the server. The store is closed by
// whoever opened it.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withAuth establishes the request owner
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.jwtService == nil {
		return middleware.HeaderOwner(next)
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator(), "/health")(next)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.OwnerHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the response status for access logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": string(s.provider),
	})
}

// jsonResponse writes an indented JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		s.log.Warn("encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response with a plain message
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to a status and writes its JSON body
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	s.jsonResponse(w, status, errorBody(err))
}

// decode reads a JSON body into v and validates its struct tags
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return s.validate.Struct(v)
}

// owner returns the owner established by withAuth
func (s *Server) owner(r *http.Request) string {
	owner, err := middleware.GetOwnerID(r)
	if err != nil {
		return middleware.AnonymousOwner
	}
	return owner
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		response["retry_after"] = secs
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	}

	s.log.Warn("rate limit exceeded",
		zap.String("client", clientID),
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
