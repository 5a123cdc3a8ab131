package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/config"
	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/llm/llmtest"
	"github.com/jonathan/search-wizard/internal/types"
)

const exampleTemplate = `{"document_type":"Job Posting","sections":[{"name":"About Us","description":"Company intro"}]}`

// isolate clears the environment variables that would reach real services
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "S3_ENDPOINT", "JWT_SECRET", "LLM_PROVIDERS", "LOG_LEVEL", "PORT"} {
		t.Setenv(key, "")
	}
}

func useClient(t *testing.T, client llm.Client) {
	t.Helper()
	previous := newLLMClient
	newLLMClient = func(context.Context, *config.Config, *zap.Logger) (llm.Client, error) {
		return client, nil
	}
	t.Cleanup(func() { newLLMClient = previous })
}

func resetFlags(cmd *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestChunkCommand(t *testing.T) {
	isolate(t)
	path := writeFile(t, "brief.txt", strings.Repeat("abcdefghij", 1200))

	stdout, _, err := execute(t, "chunk", path, "--json", "--kind", "role")
	require.NoError(t, err)

	var chunks []types.ContentChunk
	require.NoError(t, json.Unmarshal([]byte(stdout), &chunks))
	require.Len(t, chunks, 3)
	assert.Equal(t, "brief (part 1/3)", chunks[0].ArtifactName)
	assert.Equal(t, types.KindRole, chunks[2].Kind)
	assert.Equal(t, 5000, len(chunks[0].Text))
}

func TestChunkCommand_Printer(t *testing.T) {
	isolate(t)
	path := writeFile(t, "acme.md", "# Acme\n\nAcme builds reliable rockets.")

	stdout, _, err := execute(t, "chunk", path, "--name", "Acme Inc")
	require.NoError(t, err)
	assert.Contains(t, stdout, "CONTENT CHUNKS")
	assert.Contains(t, stdout, "1. Acme Inc [company]")
}

func TestChunkCommand_Errors(t *testing.T) {
	isolate(t)
	path := writeFile(t, "a.txt", "text")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no source", args: []string{"chunk"}, want: "exactly one of FILE or --url"},
		{name: "both sources", args: []string{"chunk", path, "--url", "http://example.com"}, want: "exactly one of FILE or --url"},
		{name: "bad kind", args: []string{"chunk", path, "--kind", "team"}, want: "unknown kind"},
		{name: "bad overlap", args: []string{"chunk", path, "--max-length", "10", "--overlap", "10"}, want: "overlap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAnalyzeCommand(t *testing.T) {
	isolate(t)
	client := llmtest.Text("Sure:\n" + exampleTemplate)
	useClient(t, client)
	path := writeFile(t, "job_posting.txt", "About Us\n\nWe build rockets.")

	stdout, stderr, err := execute(t, "analyze", path, "--save", "--verbose")
	require.NoError(t, err)

	assert.JSONEq(t, exampleTemplate, stdout)
	assert.Contains(t, stdout, "\n  \"sections\"")
	assert.Contains(t, stderr, "DOCUMENT STRUCTURE")
	assert.Contains(t, stderr, `Structure "job_posting" saved`)
	assert.Contains(t, client.Requests()[0].Prompt, "We build rockets.")
}

func TestAnalyzeCommand_SeveralFiles(t *testing.T) {
	isolate(t)
	client := llmtest.Text(exampleTemplate)
	useClient(t, client)
	first := writeFile(t, "one.txt", "First example body.")
	second := writeFile(t, "two.txt", "Second example body.")
	out := filepath.Join(t.TempDir(), "template.json")

	_, _, err := execute(t, "analyze", first, second, "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, exampleTemplate, string(data))

	prompt := client.Requests()[0].Prompt
	assert.Contains(t, prompt, "First example body.")
	assert.Contains(t, prompt, "Second example body.")
}

func TestGenerateCommand(t *testing.T) {
	isolate(t)
	client := llmtest.Text("```html\n<h1>Join Acme</h1>\n```")
	useClient(t, client)

	request := writeFile(t, "request.json", `{
		"document_type": "Job Posting",
		"company_artifacts": [{"name": "Acme Inc", "description": "Acme builds reliable rockets."}],
		"role_artifacts": [{"name": "Staff Engineer", "description": "Leads propulsion software."}],
		"user_requirements": "One page."
	}`)
	template := writeFile(t, "template.json", exampleTemplate)

	stdout, stderr, err := execute(t, "generate", "--request", request, "--template", template, "-v")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "<!DOCTYPE html>"), stdout)
	assert.Contains(t, stdout, "<h1>Join Acme</h1>")
	assert.Contains(t, stderr, "→ [structure lookup]")
	assert.Contains(t, stderr, "→ [persistence]")
	assert.Contains(t, client.Requests()[0].Prompt, "Acme builds reliable rockets.")
}

func TestGenerateCommand_WritesFile(t *testing.T) {
	isolate(t)
	useClient(t, llmtest.Text("<p>Saved</p>"))

	request := writeFile(t, "request.json", `{"document_type": "Memo", "user_requirements": "Short."}`)
	template := writeFile(t, "template.json", `{"sections":[{"title":"Body"}]}`)
	out := filepath.Join(t.TempDir(), "memo.html")

	stdout, stderr, err := execute(t, "generate", "-r", request, "-t", template, "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "written to "+out)

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<p>Saved</p>")
}

func TestGenerateCommand_Errors(t *testing.T) {
	isolate(t)
	useClient(t, llmtest.Text("<p>unused</p>"))

	noType := writeFile(t, "no_type.json", `{"user_requirements": "x"}`)
	valid := writeFile(t, "request.json", `{"document_type": "Memo"}`)
	badTemplate := writeFile(t, "bad.json", `{"overall_tone": "Formal"}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing flag", args: []string{"generate"}, want: "required flag"},
		{name: "no document type", args: []string{"generate", "-r", noType}, want: "no document_type"},
		{name: "unknown structure", args: []string{"generate", "-r", valid}, want: "structure not found: Memo"},
		{name: "invalid template", args: []string{"generate", "-r", valid, "-t", badTemplate}, want: "sections"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.yaml", "port: 9090\nllm:\n  providers: [openai, gemini]\n  max_tokens: 4096\n")

	resetFlags(rootCmd)
	configPath = path
	t.Setenv("PORT", "7070")
	t.Cleanup(func() { configPath = "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, []string{"openai", "gemini"}, cfg.LLM.Providers)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.json", `{"llm": {"providers": ["mystery"]}}`)

	resetFlags(rootCmd)
	configPath = path
	t.Cleanup(func() { configPath = "" })

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.providers")
}
