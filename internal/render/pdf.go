// Package render prints generated HTML documents to PDF with headless Chrome.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single print job
const DefaultTimeout = 60 * time.Second

// Options configures the PDF renderer
type Options struct {
	Timeout time.Duration
	// ExecPath overrides the Chrome binary; empty searches the usual locations
	ExecPath string
	// Letter paper size in inches
	PaperWidth  float64
	PaperHeight float64
	Logger      *zap.Logger
}

// DefaultOptions returns US Letter with a one-minute timeout
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, PaperWidth: 8.5, PaperHeight: 11}
}

// PDFRenderer prints HTML to PDF. Each call starts its own browser.
// Requires Chrome/Chromium to be installed on the system.
type PDFRenderer struct {
	opts Options
	log  *zap.Logger
}

// NewPDFRenderer creates a renderer, filling unset options with defaults
func NewPDFRenderer(opts Options) *PDFRenderer {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.PaperWidth <= 0 || opts.PaperHeight <= 0 {
		opts.PaperWidth, opts.PaperHeight = def.PaperWidth, def.PaperHeight
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFRenderer{opts: opts, log: log}
}

// allocatorOptions are the Chrome flags used for every print job
func (r *PDFRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.opts.ExecPath))
	}
	return opts
}

// PDF loads html into a blank page and prints it with backgrounds
func (r *PDFRenderer) PDF(ctx context.Context, html string) ([]byte, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.opts.Timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(r.opts.PaperWidth).
				WithPaperHeight(r.opts.PaperHeight).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pdf rendering failed: %w", err)
	}

	r.log.Debug("rendered pdf", zap.Int("html_bytes", len(html)), zap.Int("pdf_bytes", len(pdf)))
	return pdf, nil
}
