package structure

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/types"
)

// Document is an example file to analyze
type Document struct {
	Filename string
	Data     []byte
}

// PageRenderer renders the leading pages of a PDF as PNG images
type PageRenderer func(data []byte, maxPages int, dpi float64) ([][]byte, error)

// renderDPI keeps page images small enough for multimodal requests
const renderDPI = 100

// ExtractFromDocuments extracts the text of every document concurrently,
// joins the texts in input order and analyzes them as one example. The
// first filename drives the fallback document type.
func (e *Extractor) ExtractFromDocuments(ctx context.Context, x ingestion.Extractor, docs []Document) (types.StructureTemplate, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no example documents")
	}

	texts := make([]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, _, err := ingestion.ExtractBytes(x, d.Data, d.Filename)
			if err != nil {
				return fmt.Errorf("extract %s: %w", d.Filename, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- %s ---\n%s", d.Filename, texts[i])
	}

	e.log.Info("analyzing example documents", zap.Int("count", len(docs)), zap.Int("chars", sb.Len()))
	return e.ExtractWithFallback(ctx, sb.String(), docs[0].Filename), nil
}

// AnalyzeFile extracts the text of a single example file and analyzes it.
// PDFs are also rendered so the model sees their layout; a rendering failure
// drops back to text-only analysis.
func (e *Extractor) AnalyzeFile(ctx context.Context, x ingestion.Extractor, render PageRenderer, doc Document) (types.StructureTemplate, error) {
	text, meta, err := ingestion.ExtractBytes(x, doc.Data, doc.Filename)
	if err != nil {
		return nil, err
	}

	if meta.Format == ingestion.FormatPDF && render != nil {
		pages, err := render(doc.Data, e.opts.MaxPages, renderDPI)
		if err == nil && len(pages) > 0 {
			return e.ExtractFromImages(ctx, pages, text, doc.Filename), nil
		}
		e.log.Warn("page rendering failed, analyzing text only", zap.String("file", doc.Filename), zap.Error(err))
	}

	return e.ExtractWithFallback(ctx, text, doc.Filename), nil
}
