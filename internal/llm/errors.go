package llm

import (
	"fmt"
	"strings"
)

// NoProviderError is returned when no provider in the priority list has credentials
type NoProviderError struct {
	Tried []Provider
}

func (e *NoProviderError) Error() string {
	names := make([]string, len(e.Tried))
	for i, p := range e.Tried {
		names[i] = string(p)
	}
	return fmt.Sprintf("no LLM provider configured (checked: %s)", strings.Join(names, ", "))
}

// APIError wraps a failed provider call
type APIError struct {
	Provider Provider
	Model    string
	Message  string
	Cause    error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Model, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}
