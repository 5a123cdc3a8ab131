// Package config provides configuration loading and validation for the
// service and the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/search-wizard/internal/chunking"
	"github.com/jonathan/search-wizard/internal/llm"
)

// Defaults applied by MergeWithDefaults
const (
	DefaultPort              = 8080
	DefaultGenerationTimeout = 5 * time.Minute
	DefaultLogLevel          = "info"
	DefaultStructureCache    = 256
)

// Config represents the service configuration. It can be loaded from a JSON
// or YAML file and is then overridden by environment variables.
type Config struct {
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	LogLevel    string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Development bool   `json:"development,omitempty" yaml:"development,omitempty"`

	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Supabase   SupabaseConfig   `json:"supabase" yaml:"supabase"`
	Auth       AuthConfig       `json:"auth" yaml:"auth"`
	S3         S3Config         `json:"s3" yaml:"s3"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Chunking   ChunkingConfig   `json:"chunking" yaml:"chunking"`
	Render     RenderConfig     `json:"render" yaml:"render"`

	// StructureCacheSize bounds the LRU in front of the structure store
	StructureCacheSize int `json:"structure_cache_size,omitempty" yaml:"structure_cache_size,omitempty"`
}

// LLMConfig holds provider priority and credentials
type LLMConfig struct {
	// Providers is the priority list; the first with credentials wins
	Providers       []string `json:"providers,omitempty" yaml:"providers,omitempty"`
	GeminiAPIKey    string   `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	AnthropicAPIKey string   `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty"`
	OpenAIAPIKey    string   `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`
	OpenAIBaseURL   string   `json:"openai_base_url,omitempty" yaml:"openai_base_url,omitempty"`
	VertexProject   string   `json:"vertex_project,omitempty" yaml:"vertex_project,omitempty"`
	VertexLocation  string   `json:"vertex_location,omitempty" yaml:"vertex_location,omitempty"`
	MaxTokens       int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// SupabaseConfig identifies the storage project artifact URLs point at
type SupabaseConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// AuthConfig enables bearer-token authentication when Secret is set
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
}

// S3Config points at an S3-compatible bucket for uploaded example documents.
// An empty endpoint keeps uploads in memory.
type S3Config struct {
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	UseSSL    bool   `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty"`
}

// GenerationConfig bounds the generation call
type GenerationConfig struct {
	// Timeout is a Go duration string such as "5m"
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ChunkingConfig overrides the chunk threshold and overlap
type ChunkingConfig struct {
	MaxLength int `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Overlap   int `json:"overlap,omitempty" yaml:"overlap,omitempty"`
}

// RenderConfig configures headless Chrome for PDF output
type RenderConfig struct {
	ChromePath string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	Timeout    string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Load reads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has usable values. Missing LLM
// credentials are not an error here; provider selection reports them.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &ConfigurationError{Field: "port", Message: fmt.Sprintf("out of range: %d", c.Port)}
	}

	if _, err := llm.ParseProviders(strings.Join(c.LLM.Providers, ",")); err != nil {
		return &ConfigurationError{Field: "llm.providers", Message: err.Error()}
	}
	if c.LLM.MaxTokens < 0 {
		return &ConfigurationError{Field: "llm.max_tokens", Message: "must be non-negative"}
	}

	if _, err := parseDuration(c.Generation.Timeout); err != nil {
		return &ConfigurationError{Field: "generation.timeout", Message: err.Error()}
	}
	if _, err := parseDuration(c.Render.Timeout); err != nil {
		return &ConfigurationError{Field: "render.timeout", Message: err.Error()}
	}

	if c.Chunking.MaxLength < 0 || c.Chunking.Overlap < 0 {
		return &ConfigurationError{Field: "chunking", Message: "lengths must be non-negative"}
	}
	if c.Chunking.MaxLength > 0 && c.Chunking.Overlap >= c.Chunking.MaxLength {
		return &ConfigurationError{Field: "chunking.overlap", Message: "must be smaller than max_length"}
	}

	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		return &ConfigurationError{Field: "s3.bucket", Message: "required when s3.endpoint is set"}
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return &ConfigurationError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults, then from the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if len(result.LLM.Providers) == 0 {
		result.LLM.Providers = defaults.LLM.Providers
	}
	if result.LLM.MaxTokens == 0 {
		result.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if result.Generation.Timeout == "" {
		result.Generation.Timeout = defaults.Generation.Timeout
	}
	if result.Render.Timeout == "" {
		result.Render.Timeout = defaults.Render.Timeout
	}
	if result.Chunking.MaxLength == 0 {
		result.Chunking.MaxLength = defaults.Chunking.MaxLength
	}
	if result.Chunking.Overlap == 0 {
		result.Chunking.Overlap = defaults.Chunking.Overlap
	}
	if result.StructureCacheSize == 0 {
		result.StructureCacheSize = defaults.StructureCacheSize
	}

	// Built-in fallbacks
	if result.Port == 0 {
		result.Port = DefaultPort
	}
	if result.LogLevel == "" {
		result.LogLevel = DefaultLogLevel
	}
	if len(result.LLM.Providers) == 0 {
		for _, p := range llm.DefaultProviderOrder {
			result.LLM.Providers = append(result.LLM.Providers, string(p))
		}
	}
	if result.Chunking.MaxLength == 0 {
		result.Chunking.MaxLength = chunking.DefaultMaxLength
	}
	if result.Chunking.Overlap == 0 {
		result.Chunking.Overlap = chunking.DefaultOverlap
	}
	if result.StructureCacheSize == 0 {
		result.StructureCacheSize = DefaultStructureCache
	}

	return result
}

// ProviderOrder returns the parsed provider priority list
func (c *Config) ProviderOrder() ([]llm.Provider, error) {
	order, err := llm.ParseProviders(strings.Join(c.LLM.Providers, ","))
	if err != nil {
		return nil, &ConfigurationError{Field: "llm.providers", Message: err.Error()}
	}
	return order, nil
}

// Credentials returns the provider credentials
func (c *Config) Credentials() llm.Credentials {
	return llm.Credentials{
		GeminiAPIKey:    c.LLM.GeminiAPIKey,
		AnthropicAPIKey: c.LLM.AnthropicAPIKey,
		OpenAIAPIKey:    c.LLM.OpenAIAPIKey,
		OpenAIBaseURL:   c.LLM.OpenAIBaseURL,
		VertexProject:   c.LLM.VertexProject,
		VertexLocation:  c.LLM.VertexLocation,
	}
}

// GenerationTimeout returns the bound on one generation call
func (c *Config) GenerationTimeout() time.Duration {
	d, err := parseDuration(c.Generation.Timeout)
	if err != nil || d == 0 {
		return DefaultGenerationTimeout
	}
	return d
}

// RenderTimeout returns the bound on one PDF render, zero meaning the
// renderer default
func (c *Config) RenderTimeout() time.Duration {
	d, _ := parseDuration(c.Render.Timeout)
	return d
}

// ChunkOptions returns the chunker options
func (c *Config) ChunkOptions() chunking.Options {
	opts := chunking.DefaultOptions()
	if c.Chunking.MaxLength > 0 {
		opts.MaxLength = c.Chunking.MaxLength
	}
	if c.Chunking.Overlap > 0 {
		opts.Overlap = c.Chunking.Overlap
	}
	return opts
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
