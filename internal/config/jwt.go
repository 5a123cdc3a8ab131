package config

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultJWTLeeway tolerates small clock skew between issuer and service
const DefaultJWTLeeway = 30 * time.Second

// JWTConfig holds configuration for bearer-token validation. Tokens are
// issued elsewhere (Supabase auth) and signed with HS256.
type JWTConfig struct {
	Secret string
	Leeway time.Duration
}

// NewJWTConfig creates a JWT configuration from environment variables.
// It reads JWT_SECRET (required) and JWT_LEEWAY_SECONDS (default: 30).
func NewJWTConfig(getenv func(string) string) (*JWTConfig, error) {
	secret := getenv("JWT_SECRET")
	if secret == "" {
		return nil, &ConfigurationError{Field: "JWT_SECRET", Message: "is required but not set"}
	}

	leeway := DefaultJWTLeeway
	if v := getenv("JWT_LEEWAY_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ConfigurationError{Field: "JWT_LEEWAY_SECONDS", Message: fmt.Sprintf("invalid: %v", err)}
		}
		leeway = time.Duration(seconds) * time.Second
	}

	cfg := &JWTConfig{Secret: secret, Leeway: leeway}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// JWT returns the token configuration, or nil when authentication is off
func (c *Config) JWT() *JWTConfig {
	if c.Auth.JWTSecret == "" {
		return nil
	}
	return &JWTConfig{Secret: c.Auth.JWTSecret, Leeway: DefaultJWTLeeway}
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return &ConfigurationError{Field: "JWT_SECRET", Message: "cannot be empty"}
	}
	if c.Leeway < 0 {
		return &ConfigurationError{Field: "JWT_LEEWAY_SECONDS", Message: fmt.Sprintf("must be non-negative, got: %s", c.Leeway)}
	}
	return nil
}
