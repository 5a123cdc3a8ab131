package config

import (
	"strconv"
	"strings"
)

// ApplyEnv overrides file values with any environment variables that are
// set. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString(getenv, "DATABASE_URL", &c.DatabaseURL)
	setString(getenv, "LOG_LEVEL", &c.LogLevel)

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: "PORT", Message: "must be an integer"}
		}
		c.Port = port
	}

	if v := getenv("LLM_PROVIDERS"); v != "" {
		c.LLM.Providers = splitList(v)
	}
	setString(getenv, "GEMINI_API_KEY", &c.LLM.GeminiAPIKey)
	setString(getenv, "ANTHROPIC_API_KEY", &c.LLM.AnthropicAPIKey)
	setString(getenv, "OPENAI_API_KEY", &c.LLM.OpenAIAPIKey)
	setString(getenv, "OPENAI_BASE_URL", &c.LLM.OpenAIBaseURL)
	setString(getenv, "VERTEX_PROJECT", &c.LLM.VertexProject)
	setString(getenv, "VERTEX_LOCATION", &c.LLM.VertexLocation)

	setString(getenv, "SUPABASE_URL", &c.Supabase.URL)
	setString(getenv, "SUPABASE_KEY", &c.Supabase.Key)
	setString(getenv, "JWT_SECRET", &c.Auth.JWTSecret)

	setString(getenv, "S3_ENDPOINT", &c.S3.Endpoint)
	setString(getenv, "S3_REGION", &c.S3.Region)
	setString(getenv, "S3_ACCESS_KEY", &c.S3.AccessKey)
	setString(getenv, "S3_SECRET_KEY", &c.S3.SecretKey)
	setString(getenv, "S3_BUCKET", &c.S3.Bucket)
	if v := getenv("S3_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigurationError{Field: "S3_USE_SSL", Message: "must be a boolean"}
		}
		c.S3.UseSSL = useSSL
	}

	setString(getenv, "GENERATION_TIMEOUT", &c.Generation.Timeout)
	setString(getenv, "CHROME_PATH", &c.Render.ChromePath)

	return nil
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
