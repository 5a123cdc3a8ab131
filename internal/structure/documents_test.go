package structure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/ingestion/ingestiontest"
	"github.com/jonathan/search-wizard/internal/llm/llmtest"
)

type stubExtractor struct{}

func (stubExtractor) ExtractPDF([]byte) (string, error)     { return "pdf body", nil }
func (stubExtractor) ExtractPDFFile(string) (string, error) { return "pdf body", nil }
func (stubExtractor) ExtractDOCX([]byte) (string, error)    { return "docx body", nil }

func TestExtractFromDocuments_JoinsInInputOrder(t *testing.T) {
	fake := llmtest.Text(validReply)
	e, _ := newTestExtractor(fake)

	docs := []Document{
		{Filename: "first.txt", Data: []byte("alpha text")},
		{Filename: "second.docx", Data: ingestiontest.DOCX("ignored")},
		{Filename: "third.md", Data: []byte("gamma text")},
	}

	tmpl, err := e.ExtractFromDocuments(context.Background(), stubExtractor{}, docs)
	require.NoError(t, err)
	assert.Equal(t, "Job Description", tmpl.DocumentType())

	prompt := fake.Requests()[0].Prompt
	assert.Contains(t, prompt, "--- first.txt ---\nalpha text\n\n--- second.docx ---\ndocx body\n\n--- third.md ---\ngamma text")
}

func TestExtractFromDocuments_LeavesNoGoroutines(t *testing.T) {
	e, _ := newTestExtractor(llmtest.Text(validReply))

	docs := []Document{
		{Filename: "a.txt", Data: []byte("one")},
		{Filename: "b.txt", Data: []byte("two")},
	}
	_, err := e.ExtractFromDocuments(context.Background(), stubExtractor{}, docs)
	require.NoError(t, err)

	goleak.VerifyNone(t, leakOptions...)
}

func TestExtractFromDocuments_ExtractionFailure(t *testing.T) {
	fake := llmtest.Text(validReply)
	e, _ := newTestExtractor(fake)

	docs := []Document{
		{Filename: "ok.txt", Data: []byte("fine")},
		{Filename: "blob.bin", Data: []byte{0x00, 0x01, 0x02}},
	}

	_, err := e.ExtractFromDocuments(context.Background(), stubExtractor{}, docs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ingestion.ErrUnsupportedFormat)
	assert.Zero(t, fake.Calls())
}

func TestExtractFromDocuments_Empty(t *testing.T) {
	e, _ := newTestExtractor(llmtest.Text(validReply))

	_, err := e.ExtractFromDocuments(context.Background(), stubExtractor{}, nil)
	assert.Error(t, err)
}

func TestAnalyzeFile_PDFUsesImages(t *testing.T) {
	fake := llmtest.Text(validReply)
	e, _ := newTestExtractor(fake)

	var gotPages int
	render := func(_ []byte, maxPages int, _ float64) ([][]byte, error) {
		gotPages = maxPages
		return [][]byte{[]byte("png1"), []byte("png2")}, nil
	}

	_, err := e.AnalyzeFile(context.Background(), stubExtractor{}, render, Document{Filename: "deck.pdf", Data: ingestiontest.PDF("x")})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPages, gotPages)
	assert.Len(t, fake.Requests()[0].Images, 2)
	assert.Contains(t, fake.Requests()[0].Prompt, "pdf body")
}

func TestAnalyzeFile_RenderFailureFallsBackToText(t *testing.T) {
	fake := llmtest.Text(validReply)
	e, _ := newTestExtractor(fake)

	render := func([]byte, int, float64) ([][]byte, error) {
		return nil, errors.New("no renderer")
	}

	_, err := e.AnalyzeFile(context.Background(), stubExtractor{}, render, Document{Filename: "deck.pdf", Data: ingestiontest.PDF("x")})
	require.NoError(t, err)
	assert.Empty(t, fake.Requests()[0].Images)
}
