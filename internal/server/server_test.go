package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/search-wizard/internal/config"
	"github.com/jonathan/search-wizard/internal/generation"
	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/llm/llmtest"
	"github.com/jonathan/search-wizard/internal/server/middleware"
	"github.com/jonathan/search-wizard/internal/server/ratelimit"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/structure"
	"github.com/jonathan/search-wizard/internal/types"
)

const analyzedTemplate = `{"document_type":"Job Posting","sections":[{"title":"About the Role"}]}`

type fakePDF struct {
	html string
	err  error
}

func (f *fakePDF) PDF(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 rendered"), nil
}

type fixture struct {
	handler http.Handler
	store   *store.Memory
	client  *llmtest.Fake
	pdf     *fakePDF
}

func newFixture(t *testing.T, client *llmtest.Fake, cfg Config) *fixture {
	t.Helper()
	if cfg.RateLimit == nil {
		cfg.RateLimit = &ratelimit.Config{Enabled: false}
	}

	mem := store.NewMemory()
	gen, err := generation.NewService(generation.Options{Store: mem, Client: client})
	require.NoError(t, err)

	pdf := &fakePDF{}
	srv, err := New(cfg, Deps{
		Store:     mem,
		Generator: gen,
		Extractor: structure.New(client, structure.Options{MaxAttempts: 1}),
		PDF:       pdf,
		Provider:  llm.ProviderGemini,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &fixture{handler: srv.Handler(), store: mem, client: client, pdf: pdf}
}

func (f *fixture) seed(t *testing.T, owner string) *store.Structure {
	t.Helper()
	st := &store.Structure{
		OwnerID:      owner,
		Name:         "Job Posting",
		DocumentType: "Job Posting",
		Template:     types.StructureTemplate(analyzedTemplate),
	}
	require.NoError(t, f.store.SaveStructure(context.Background(), st))
	return st
}

func (f *fixture) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func generateBody() map[string]any {
	return map[string]any{
		"document_type":     "Job Posting",
		"project_id":        "proj-1",
		"company_artifacts": []map[string]string{{"name": "Acme Inc", "description": "Acme builds reliable rockets."}},
		"role_artifacts":    []map[string]string{{"name": "Staff Engineer", "description": "Leads propulsion software."}},
		"user_requirements": "One page.",
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, llmtest.Text("{}"), Config{})

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "\n  \"provider\": \"gemini\"")

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, llmtest.Text("{}"), Config{})

	rec := f.do(t, http.MethodOptions, "/generate-document", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestGenerateDocument(t *testing.T) {
	f := newFixture(t, llmtest.Text("<h1>Join Acme</h1>"), Config{})
	f.seed(t, middleware.AnonymousOwner)

	rec := f.do(t, http.MethodPost, "/generate-document", generateBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "Job Posting", body["document_type"])
	assert.Equal(t, "proj-1", body["project_id"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["timestamp"])
	html, _ := body["html_content"].(string)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<h1>Join Acme</h1>")

	prompt := f.client.Requests()[0].Prompt
	assert.Contains(t, prompt, "Acme builds reliable rockets.")
	assert.Contains(t, prompt, "About the Role")
}

func TestGenerateDocument_OwnerFromHeader(t *testing.T) {
	f := newFixture(t, llmtest.Text("<p>ok</p>"), Config{})
	f.seed(t, "user-42")

	rec := f.do(t, http.MethodPost, "/generate-document", generateBody())
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/generate-document", generateBody(), middleware.OwnerHeader, "user-42")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGenerateDocument_MissingStructure(t *testing.T) {
	f := newFixture(t, llmtest.Text("<p>unused</p>"), Config{})
	require.NoError(t, f.store.SaveStructure(context.Background(), &store.Structure{
		OwnerID:  middleware.AnonymousOwner,
		Name:     "Press Release",
		Template: types.StructureTemplate(analyzedTemplate),
	}))

	rec := f.do(t, http.MethodPost, "/generate-document", generateBody())
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, string(generation.StageStructureLookup), body["stage"])
	assert.Equal(t, "Job Posting", body["document_type"])
	assert.Equal(t, []any{"Press Release"}, body["available"])
	assert.Zero(t, f.client.Calls())
}

func TestGenerateDocument_Validation(t *testing.T) {
	f := newFixture(t, llmtest.Text("<p>unused</p>"), Config{})

	tests := []struct {
		name string
		body any
	}{
		{name: "malformed JSON", body: `{"document_type":`},
		{name: "missing document type", body: map[string]any{"user_requirements": "x"}},
		{name: "artifact without name", body: map[string]any{
			"document_type":     "Job Posting",
			"company_artifacts": []map[string]string{{"description": "nameless"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/generate-document", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decodeBody(t, rec), "error")
		})
	}
}

func TestGenerateDocument_ModelFailure(t *testing.T) {
	f := newFixture(t, llmtest.New(llmtest.Reply{Err: errors.New("upstream unavailable")}), Config{})
	f.seed(t, middleware.AnonymousOwner)

	rec := f.do(t, http.MethodPost, "/generate-document", generateBody())
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, string(generation.StageGeneration), body["stage"])

	docs, err := f.store.ListDocuments(context.Background(), middleware.AnonymousOwner, store.DocumentFilters{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGenerateDocumentStream(t *testing.T) {
	f := newFixture(t, llmtest.Text("<p>streamed</p>"), Config{})
	f.seed(t, middleware.AnonymousOwner)

	rec := f.do(t, http.MethodPost, "/generate-document/stream", generateBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Equal(t, 5, strings.Count(out, "event: progress\n"))
	assert.Contains(t, out, `"stage":"structure lookup"`)
	assert.Contains(t, out, `"stage":"persistence"`)
	assert.Contains(t, out, "event: complete\n")
	assert.Contains(t, out, "streamed")
	assert.NotContains(t, out, "event: error")
}

func TestGenerateDocumentStream_Error(t *testing.T) {
	f := newFixture(t, llmtest.Text("<p>unused</p>"), Config{})

	rec := f.do(t, http.MethodPost, "/generate-document/stream", generateBody())
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, "event: error\n")
	assert.Contains(t, out, `"status":404`)
	assert.NotContains(t, out, "event: complete")
}

func TestStructuresCRUD(t *testing.T) {
	f := newFixture(t, llmtest.Text("{}"), Config{})

	rec := f.do(t, http.MethodGet, "/structures", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodPut, "/structures/Press%20Release", map[string]any{
		"template": json.RawMessage(`{"sections":[{"name":"Headline"}],"overall_tone":"Upbeat"}`),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decodeBody(t, rec)
	assert.Equal(t, "Press Release", saved["name"])
	assert.Equal(t, "Press Release", saved["document_type"])

	rec = f.do(t, http.MethodGet, "/structures/Press%20Release", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	tmpl, _ := got["template"].(map[string]any)
	assert.Equal(t, "Upbeat", tmpl["overall_tone"])

	rec = f.do(t, http.MethodGet, "/structures", nil)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodDelete, "/structures/Press%20Release", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/structures/Press%20Release", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutStructure_Invalid(t *testing.T) {
	f := newFixture(t, llmtest.Text("{}"), Config{})

	tests := []struct {
		name string
		body any
	}{
		{name: "no sections", body: map[string]any{"template": json.RawMessage(`{"overall_tone":"Formal"}`)}},
		{name: "empty sections", body: map[string]any{"template": json.RawMessage(`{"sections":[]}`)}},
		{name: "neither template nor url", body: map[string]any{"document_type": "Memo"}},
		{name: "bad url", body: map[string]any{"file_url": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPut, "/structures/Memo", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := f.do(t, http.MethodPut, "/structures/Memo", map[string]any{"template": json.RawMessage(`{"overall_tone":"Formal"}`)})
	assert.Contains(t, decodeBody(t, rec), "fields")
}

func TestAnalyzeStructure_FromText(t *testing.T) {
	f := newFixture(t, llmtest.Text("Here you go:\n"+analyzedTemplate), Config{})

	rec := f.do(t, http.MethodPost, "/analyze-structure", map[string]any{
		"name": "Job Posting",
		"text": "About the Role\nWe are hiring.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	st, err := f.store.GetStructure(context.Background(), middleware.AnonymousOwner, "Job Posting")
	require.NoError(t, err)
	assert.JSONEq(t, analyzedTemplate, string(st.Template))
	assert.Equal(t, "Job Posting", st.DocumentType)
	assert.Contains(t, f.client.Requests()[0].Prompt, "We are hiring.")
}

func TestAnalyzeStructure_FallbackOnMalformedReply(t *testing.T) {
	f := newFixture(t, llmtest.Text("no json here"), Config{})

	rec := f.do(t, http.MethodPost, "/analyze-structure", map[string]any{
		"name":          "weekly report",
		"document_type": "Report",
		"text":          "Summary\nNumbers went up.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "Report", body["document_type"])
	tmpl, _ := body["template"].(map[string]any)
	assert.Equal(t, "Analytical Report", tmpl["document_type"])
}

func TestAnalyzeStructure_FromURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Briefing\n\nKey points follow."))
	}))
	defer remote.Close()

	f := newFixture(t, llmtest.Text(analyzedTemplate), Config{})

	rec := f.do(t, http.MethodPost, "/analyze-structure", map[string]any{
		"name":     "Briefing",
		"file_url": remote.URL + "/examples/briefing.txt",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, remote.URL+"/examples/briefing.txt", body["file_url"])
	assert.Contains(t, f.client.Requests()[0].Prompt, "Key points follow.")
}

func TestPutStructure_FromURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Memo\n\nTo all staff."))
	}))
	defer remote.Close()

	f := newFixture(t, llmtest.Text(analyzedTemplate), Config{})

	rec := f.do(t, http.MethodPut, "/structures/Memo", map[string]any{
		"file_url": remote.URL + "/memo.txt",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	st, err := f.store.GetStructure(context.Background(), middleware.AnonymousOwner, "Memo")
	require.NoError(t, err)
	assert.JSONEq(t, analyzedTemplate, string(st.Template))
	assert.Equal(t, remote.URL+"/memo.txt", st.FileURL)
	assert.Contains(t, f.client.Requests()[0].Prompt, "To all staff.")
}

func TestAnalyzeStructure_RequiresTextOrURL(t *testing.T) {
	f := newFixture(t, llmtest.Text(analyzedTemplate), Config{})

	rec := f.do(t, http.MethodPost, "/analyze-structure", map[string]any{"name": "Empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.client.Calls())
}

func TestAnalyzeFile(t *testing.T) {
	f := newFixture(t, llmtest.Text(analyzedTemplate), Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "posting.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("About the Role\n\nShip propulsion software."))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("document_type", "Job Posting"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze-file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "posting", body["name"])
	assert.Equal(t, "Job Posting", body["document_type"])
	assert.Equal(t, "memory://anonymous/posting.txt", body["file_url"])
	assert.Contains(t, f.client.Requests()[0].Prompt, "Ship propulsion software.")
}

func TestAnalyzeFile_MissingFile(t *testing.T) {
	f := newFixture(t, llmtest.Text(analyzedTemplate), Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze-file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocuments(t *testing.T) {
	f := newFixture(t, llmtest.Text("<p>stored</p>"), Config{})
	f.seed(t, middleware.AnonymousOwner)

	rec := f.do(t, http.MethodPost, "/generate-document", generateBody())
	require.Equal(t, http.StatusOK, rec.Code)
	id, _ := decodeBody(t, rec)["id"].(string)
	require.NotEmpty(t, id)

	rec = f.do(t, http.MethodGet, "/documents?project_id=proj-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/documents?project_id=other", nil)
	assert.EqualValues(t, 0, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/documents/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["html_content"], "<p>stored</p>")

	rec = f.do(t, http.MethodGet, "/documents/"+id+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), id+".pdf")
	assert.Equal(t, "%PDF-1.4 rendered", rec.Body.String())
	assert.Contains(t, f.pdf.html, "<p>stored</p>")

	rec = f.do(t, http.MethodGet, "/documents/"+id, nil, middleware.OwnerHeader, "someone-else")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocuments_BadRequests(t *testing.T) {
	f := newFixture(t, llmtest.Text("{}"), Config{})

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/documents/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/documents?limit=-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/documents/00000000-0000-0000-0000-000000000001", nil).Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, llmtest.Text("{}"), Config{RateLimit: &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
	}})

	rec := f.do(t, http.MethodGet, "/structures", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = f.do(t, http.MethodGet, "/structures", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeBody(t, rec)["error"])
}

func TestBearerAuth(t *testing.T) {
	jwtCfg := &config.JWTConfig{Secret: "test-secret-key-for-jwt-signing-minimum-32-bytes"}
	f := newFixture(t, llmtest.Text("{}"), Config{JWT: jwtCfg})
	f.seed(t, "user-7")

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/structures", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/structures", nil, middleware.OwnerHeader, "user-7")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "header identity is ignored when tokens are required")

	token, err := NewJWTService(jwtCfg).GenerateToken("user-7", time.Hour)
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/structures", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}
