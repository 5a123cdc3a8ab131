package structure

import "fmt"

// MalformedResponseError is returned when a model reply holds no parseable
// JSON object
type MalformedResponseError struct {
	Filename string
	Excerpt  string
	Cause    error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed structure response for %s: %v (excerpt: %q)", e.Filename, e.Cause, e.Excerpt)
	}
	return fmt.Sprintf("malformed structure response for %s: no JSON object (excerpt: %q)", e.Filename, e.Excerpt)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}
