package config

import "fmt"

// ConfigurationError reports a missing or invalid configuration value
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config error: '%s' %s", e.Field, e.Message)
}
