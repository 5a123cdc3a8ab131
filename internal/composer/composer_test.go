package composer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/search-wizard/internal/types"
)

const sampleTemplate = `{"document_type":"Job Description","sections":[{"name":"About Us","description":"Company intro"},{"name":"Responsibilities","description":"Duties"}],"overall_tone":"Professional"}`

func chunk(name string, kind types.Kind, text string) types.ContentChunk {
	return types.ContentChunk{ArtifactName: name, Kind: kind, Text: text}
}

func TestCompose_SectionOrder(t *testing.T) {
	company := []types.ContentChunk{chunk("Acme Inc", types.KindCompany, "Acme builds rockets.")}
	role := []types.ContentChunk{chunk("Engineer", types.KindRole, "Writes flight software.")}

	out, err := Compose(types.StructureTemplate(sampleTemplate), "Keep it short.", company, role)
	require.NoError(t, err)

	markers := []string{
		"You are a professional document writer creating a high-quality Job Description document",
		`"document_type": "Job Description"`,
		"Critical Instructions for Document Creation",
		"KNOWLEDGE BASE CONTENT:",
		"--- COMPANY INFORMATION ---",
		"\nAcme Inc:\nAcme builds rockets.\n",
		"--- ROLE INFORMATION ---",
		"\nEngineer:\nWrites flight software.\n",
		"\nUSER REQUIREMENTS:\nKeep it short.\n",
		"IMPORTANT FINAL INSTRUCTIONS",
	}

	last := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		require.GreaterOrEqual(t, idx, 0, "missing %q", m)
		assert.Greater(t, idx, last, "%q out of order", m)
		last = idx
	}
}

func TestCompose_Deterministic(t *testing.T) {
	company := []types.ContentChunk{
		chunk("A", types.KindCompany, "alpha"),
		chunk("B (part 1/2)", types.KindCompany, strings.Repeat("b", 6000)),
	}
	role := []types.ContentChunk{chunk("R", types.KindRole, "rho")}

	first, err := Compose(types.StructureTemplate(sampleTemplate), "req", company, role)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Compose(types.StructureTemplate(sampleTemplate), "req", company, role)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompose_PreservesTemplateKeyOrder(t *testing.T) {
	tmpl := `{"zeta":1,"alpha":{"nested":true},"document_type":"Report"}`
	out, err := Compose(types.StructureTemplate(tmpl), "", nil, nil)
	require.NoError(t, err)

	z := strings.Index(out, `"zeta"`)
	a := strings.Index(out, `"alpha"`)
	d := strings.Index(out, `"document_type"`)
	assert.True(t, z < a && a < d, "template keys reordered")
}

func TestTruncate_Boundary(t *testing.T) {
	exact := strings.Repeat("x", MaxChunkLength)
	assert.Equal(t, exact, Truncate(exact))

	over := strings.Repeat("y", MaxChunkLength+1)
	got := Truncate(over)
	assert.Equal(t, strings.Repeat("y", MaxChunkLength)+TruncationMarker, got)
}

func TestCompose_TruncatesPerChunk(t *testing.T) {
	long := strings.Repeat("z", MaxChunkLength+1)
	company := []types.ContentChunk{
		chunk("Long", types.KindCompany, long),
		chunk("Short", types.KindCompany, "short text"),
	}

	out, err := Compose(types.StructureTemplate(sampleTemplate), "", company, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "[Content truncated due to length...]"))
	assert.Contains(t, out, "\nShort:\nshort text\n")
	assert.NotContains(t, out, long)
}

func TestCompose_OmitsEmptyParts(t *testing.T) {
	out, err := Compose(types.StructureTemplate(sampleTemplate), "   ", nil, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "KNOWLEDGE BASE CONTENT:")
	assert.NotContains(t, out, "--- COMPANY INFORMATION ---")
	assert.NotContains(t, out, "--- ROLE INFORMATION ---")
	assert.NotContains(t, out, "USER REQUIREMENTS:")
}

func TestCompose_RejectsUnserializableTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template types.StructureTemplate
	}{
		{"empty", nil},
		{"whitespace", types.StructureTemplate("   ")},
		{"broken json", types.StructureTemplate(`{"sections": [`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.template, "req", nil, nil)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "template", cfgErr.Field)
		})
	}
}

func TestComposeInput_DocumentTypeOverride(t *testing.T) {
	out, err := ComposeInput(Input{
		DocumentType: "Briefing Document",
		Template:     types.StructureTemplate(sampleTemplate),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "high-quality Briefing Document document")
}

func TestSections_Names(t *testing.T) {
	sections, err := Sections(Input{
		Template:     types.StructureTemplate(sampleTemplate),
		Requirements: "r",
		Company:      []types.ContentChunk{chunk("c", types.KindCompany, "c")},
		Role:         []types.ContentChunk{chunk("r", types.KindRole, "r")},
	})
	require.NoError(t, err)

	var got []string
	for _, s := range sections {
		got = append(got, s.Name)
	}
	assert.Equal(t, []string{
		SectionPreamble, SectionStructure, SectionInstructions,
		SectionCompany, SectionRole, SectionRequirements, SectionClosing,
	}, got)
}
