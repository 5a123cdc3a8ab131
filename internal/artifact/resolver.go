// Package artifact resolves request artifacts into text. Content comes from
// inline descriptions, remote files or local paths, and failures degrade to
// bracketed placeholder text instead of aborting the request.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/fetch"
	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/types"
)

// MinInlineLength is the shortest inline description used as-is
const MinInlineLength = 10

// Placeholders substituted for content that could not be resolved
const (
	PlaceholderInvalidPDF = "[Content does not appear to be a valid PDF file]"
	PlaceholderEmptyPDF   = "[PDF document contained no extractable text]"
	PlaceholderEmptyDOCX  = "[DOCX document contained no extractable text]"
)

// Options configures a Resolver
type Options struct {
	Fetcher     fetch.Fetcher
	Extractor   ingestion.Extractor
	SupabaseKey string
	// TempDir holds transient files for raw PDF payloads; empty means os.TempDir
	TempDir string
	Logger  *zap.Logger
}

// Resolver turns artifacts into text content
type Resolver struct {
	fetcher     fetch.Fetcher
	extractor   ingestion.Extractor
	supabaseKey string
	tempDir     string
	log         *zap.Logger
}

// NewResolver creates a resolver, filling unset options with the plain
// HTTP fetcher, the MuPDF extractor and a no-op logger.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		fetcher:     opts.Fetcher,
		extractor:   opts.Extractor,
		supabaseKey: opts.SupabaseKey,
		tempDir:     opts.TempDir,
		log:         opts.Logger,
	}
	if r.fetcher == nil {
		r.fetcher = fetch.Plain(fetch.DefaultOptions())
	}
	if r.extractor == nil {
		r.extractor = ingestion.DefaultExtractor{}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// Resolve returns the text content of a. It never fails: download and
// extraction problems come back as placeholder text and are logged.
func (r *Resolver) Resolve(ctx context.Context, a types.Artifact) string {
	inline := a.InlineContent
	rawPDF := ingestion.LooksLikeRawPDF(inline)

	if !rawPDF && utf8.RuneCountInString(strings.TrimSpace(inline)) >= MinInlineLength {
		return inline
	}

	log := r.log.With(zap.String("artifact", a.Name))
	if rawPDF {
		log.Warn("inline content is undecoded PDF", zap.Int("bytes", len(inline)))
	}

	switch {
	case a.FileURL != "":
		text, downloaded := r.fromURL(ctx, log, a.FileURL)
		if !downloaded && rawPDF {
			log.Info("download failed, extracting inline PDF bytes")
			return r.fromRawPDF(log, inline)
		}
		return text
	case rawPDF:
		return r.fromRawPDF(log, inline)
	case a.FilePath != "":
		return r.fromPath(log, a.FilePath)
	}
	return inline
}

// fromURL downloads and converts fileURL. downloaded is false when the
// content could not be fetched at all.
func (r *Resolver) fromURL(ctx context.Context, log *zap.Logger, fileURL string) (text string, downloaded bool) {
	target, headers := fetch.PrepareURL(fileURL, r.supabaseKey)

	res, err := r.fetcher.Fetch(ctx, target, headers)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) && fe.StatusCode != 0 && fe.StatusCode/100 != 2 {
			log.Warn("artifact download failed", zap.String("url", fileURL), zap.Int("status", fe.StatusCode))
			return fmt.Sprintf("[Error downloading file: HTTP %d]", fe.StatusCode), false
		}
		log.Warn("artifact download failed", zap.String("url", fileURL), zap.Error(err))
		return fmt.Sprintf("[Error processing URL: %v]", err), false
	}
	return r.convert(log, fileURL, res), true
}

func (r *Resolver) convert(log *zap.Logger, fileURL string, res *fetch.Result) string {

	log = log.With(zap.Int("status", res.StatusCode), zap.Int("bytes", len(res.Body)))
	ct := res.MediaType()
	ext := strings.ToLower(path.Ext(stripQuery(fileURL)))

	switch {
	case strings.Contains(ct, "pdf"):
		return r.pdf(log, res.Body)
	case strings.Contains(ct, "wordprocessingml"):
		return r.docx(log, res.Body)
	case strings.Contains(ct, "html"):
		text, err := fetch.ExtractMainText(res.Text(), fetch.DefaultTextSelectors())
		if err != nil {
			log.Warn("html extraction failed", zap.Error(err))
			return fmt.Sprintf("[Error processing URL: %v]", err)
		}
		return text
	case isTextual(ct):
		return res.Text()
	case ext == ".pdf":
		return r.pdf(log, res.Body)
	case ext == ".docx":
		return r.docx(log, res.Body)
	}

	log.Info("artifact is unrecognized binary", zap.String("content_type", res.ContentType))
	return fmt.Sprintf("[Binary content of type %s - %d bytes]", res.ContentType, len(res.Body))
}

func (r *Resolver) pdf(log *zap.Logger, data []byte) string {
	if !ingestion.HasPDFSignature(data) {
		log.Warn("body has no PDF signature")
		return PlaceholderInvalidPDF
	}
	text, err := r.extractor.ExtractPDF(data)
	return r.pdfResult(log, text, err)
}

func (r *Resolver) fromRawPDF(log *zap.Logger, inline string) string {
	f, err := os.CreateTemp(r.tempDir, "artifact-*.pdf")
	if err != nil {
		log.Error("temp file for raw PDF", zap.Error(err))
		return fmt.Sprintf("[PDF extraction error: %v]", err)
	}
	name := f.Name()
	defer func() { _ = os.Remove(name) }()

	_, err = f.WriteString(inline)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error("write raw PDF", zap.Error(err))
		return fmt.Sprintf("[PDF extraction error: %v]", err)
	}

	text, err := r.extractor.ExtractPDFFile(name)
	return r.pdfResult(log, text, err)
}

func (r *Resolver) pdfResult(log *zap.Logger, text string, err error) string {
	switch {
	case errors.Is(err, ingestion.ErrNoText):
		log.Warn("PDF has no extractable text")
		return PlaceholderEmptyPDF
	case err != nil:
		log.Warn("PDF extraction failed", zap.Error(err))
		return fmt.Sprintf("[PDF extraction error: %v]", err)
	}

	text = ingestion.CleanText(text)
	if text == "" {
		log.Warn("PDF has no extractable text")
		return PlaceholderEmptyPDF
	}
	return text
}

func (r *Resolver) docx(log *zap.Logger, data []byte) string {
	text, err := r.extractor.ExtractDOCX(data)
	switch {
	case errors.Is(err, ingestion.ErrNoText):
		log.Warn("DOCX has no extractable text")
		return PlaceholderEmptyDOCX
	case err != nil:
		log.Warn("DOCX extraction failed", zap.Error(err))
		return fmt.Sprintf("[DOCX extraction error: %v]", err)
	}
	return ingestion.CleanText(text)
}

func (r *Resolver) fromPath(log *zap.Logger, filePath string) string {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Warn("artifact file unreadable", zap.String("path", filePath), zap.Error(err))
		return fmt.Sprintf("[Error reading file: %v]", err)
	}
	log = log.With(zap.Int("bytes", len(data)))

	text, meta, err := ingestion.ExtractBytes(r.extractor, data, filePath)
	switch {
	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		var xe *ingestion.ExtractionError
		errors.As(err, &xe)
		return fmt.Sprintf("[Binary content of type %s - %d bytes]", xe.Message, len(data))
	case errors.Is(err, ingestion.ErrNoText):
		log.Warn("file has no extractable text")
		return fmt.Sprintf("[%s document contained no extractable text]", strings.ToUpper(formatOf(err)))
	case err != nil:
		log.Warn("file extraction failed", zap.Error(err))
		return fmt.Sprintf("[%s extraction error: %v]", strings.ToUpper(formatOf(err)), err)
	}

	log.Debug("resolved artifact from file", zap.String("format", string(meta.Format)))
	return text
}

func formatOf(err error) string {
	var xe *ingestion.ExtractionError
	if errors.As(err, &xe) && xe.Format != "" {
		return string(xe.Format)
	}
	return "file"
}

func isTextual(ct string) bool {
	return strings.HasPrefix(ct, "text/") || strings.Contains(ct, "json") || strings.Contains(ct, "xml")
}

func stripQuery(u string) string {
	if idx := strings.IndexAny(u, "?#"); idx >= 0 {
		return u[:idx]
	}
	return u
}
