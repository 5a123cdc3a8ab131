// Package structure derives document templates from example documents with
// a language model.
package structure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/prompts"
	"github.com/jonathan/search-wizard/internal/types"
)

// Defaults for Options
const (
	DefaultMaxAttempts    = 2
	DefaultRetryDelay     = 2 * time.Second
	DefaultMaxInputLength = 10000
	DefaultMaxPages       = 3
)

// TruncationMarker is appended to example text cut at MaxInputLength
const TruncationMarker = "\n... [Content truncated due to length]\n"

const excerptLength = 200

// Options configures an Extractor. Zero fields take the defaults above.
type Options struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	MaxInputLength int
	MaxPages       int
	Tier           llm.ModelTier
	Logger         *zap.Logger
}

// Extractor asks the model to describe the layout of example documents
type Extractor struct {
	client llm.Client
	opts   Options
	log    *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// New creates an Extractor backed by client
func New(client llm.Client, opts Options) *Extractor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{client: client, opts: opts, log: log, sleep: sleepContext}
}

// Extract makes a single analysis call. It returns a *MalformedResponseError
// when the reply holds no parseable JSON object.
func (e *Extractor) Extract(ctx context.Context, exampleText, filename string) (types.StructureTemplate, error) {
	prompt, err := e.prompt("analyze-structure", exampleText, filename)
	if err != nil {
		return nil, err
	}
	return e.call(ctx, llm.Request{Prompt: prompt, Tier: e.opts.Tier}, filename)
}

// ExtractWithFallback retries Extract up to MaxAttempts times, pausing
// RetryDelay between attempts, and returns Default(filename) when every
// attempt fails. The result is never nil.
func (e *Extractor) ExtractWithFallback(ctx context.Context, exampleText, filename string) types.StructureTemplate {
	return e.withFallback(ctx, filename, func() (types.StructureTemplate, error) {
		return e.Extract(ctx, exampleText, filename)
	})
}

// ExtractFromImages is ExtractWithFallback with the first MaxPages rendered
// pages attached for a multimodal model.
func (e *Extractor) ExtractFromImages(ctx context.Context, pages [][]byte, exampleText, filename string) types.StructureTemplate {
	if len(pages) > e.opts.MaxPages {
		pages = pages[:e.opts.MaxPages]
	}
	images := make([]llm.Image, len(pages))
	for i, p := range pages {
		images[i] = llm.Image{MIMEType: "image/png", Data: p}
	}

	return e.withFallback(ctx, filename, func() (types.StructureTemplate, error) {
		prompt, err := e.prompt("analyze-images", exampleText, filename)
		if err != nil {
			return nil, err
		}
		return e.call(ctx, llm.Request{Prompt: prompt, Images: images, Tier: e.opts.Tier}, filename)
	})
}

func (e *Extractor) withFallback(ctx context.Context, filename string, attempt func() (types.StructureTemplate, error)) types.StructureTemplate {
	log := e.log.With(zap.String("file", filename))

	for n := 1; n <= e.opts.MaxAttempts; n++ {
		tmpl, err := attempt()
		if err == nil {
			return tmpl
		}
		log.Warn("structure analysis failed", zap.Int("attempt", n), zap.Int("max_attempts", e.opts.MaxAttempts), zap.Error(err))

		if n == e.opts.MaxAttempts || ctx.Err() != nil {
			break
		}
		if err := e.sleep(ctx, e.opts.RetryDelay); err != nil {
			break
		}
	}

	log.Warn("using fallback document structure")
	return Default(filename)
}

func (e *Extractor) call(ctx context.Context, req llm.Request, filename string) (types.StructureTemplate, error) {
	reply, err := e.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("structure analysis call: %w", err)
	}
	return Parse(reply, filename)
}

// Parse takes the span from the first '{' to the last '}' of a reply and
// returns it when it is valid JSON.
func Parse(reply, filename string) (types.StructureTemplate, error) {
	candidate := llm.OuterJSONObject(reply)
	if candidate == "" {
		return nil, &MalformedResponseError{Filename: filename, Excerpt: excerpt(reply)}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, &MalformedResponseError{Filename: filename, Excerpt: excerpt(candidate), Cause: err}
	}
	return types.StructureTemplate(candidate), nil
}

func (e *Extractor) prompt(key, exampleText, filename string) (string, error) {
	tmpl, err := prompts.Get(prompts.StructureFile, key)
	if err != nil {
		return "", err
	}
	instructions, err := prompts.Get(prompts.StructureFile, "output-instructions")
	if err != nil {
		return "", err
	}
	return prompts.Format(tmpl, map[string]string{
		"Filename":     filename,
		"Content":      Truncate(exampleText, e.opts.MaxInputLength),
		"Instructions": instructions,
	}), nil
}

// Truncate cuts text to max runes and appends TruncationMarker when it is longer
func Truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + TruncationMarker
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= excerptLength {
		return s
	}
	return string([]rune(s)[:excerptLength]) + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsMalformed reports whether err is a *MalformedResponseError
func IsMalformed(err error) bool {
	var m *MalformedResponseError
	return errors.As(err, &m)
}
