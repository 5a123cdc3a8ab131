// Package server provides the HTTP API of the document generation service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/search-wizard/internal/composer"
	"github.com/jonathan/search-wizard/internal/config"
	"github.com/jonathan/search-wizard/internal/generation"
	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/schemas"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/structure"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *store.NotFoundError
		invalid    *ErrValidation
		configErr  *config.ConfigurationError
		composeErr *composer.ConfigurationError
		schemaErr  *schemas.ValidationError
		fieldErrs  validator.ValidationErrors
		malformed  *structure.MalformedResponseError
		noProvider *llm.NoProviderError
		extractErr *ingestion.ExtractionError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &configErr), errors.As(err, &composeErr),
		errors.As(err, &schemaErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &extractErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &malformed):
		return http.StatusBadGateway
	case errors.As(err, &noProvider):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON body for err. Stage failures carry their stage and
// document type, and a missing structure lists the names that do exist.
func errorBody(err error) map[string]any {
	body := map[string]any{"error": err.Error()}

	var stageErr *generation.StageError
	if errors.As(err, &stageErr) {
		body["stage"] = stageErr.Stage
		body["document_type"] = stageErr.DocumentType
	}

	var notFound *store.NotFoundError
	if errors.As(err, &notFound) && notFound.Available != nil {
		body["available"] = notFound.Available
	}

	var schemaErr *schemas.ValidationError
	if errors.As(err, &schemaErr) {
		fields := make([]map[string]string, 0, len(schemaErr.Errors))
		for _, fe := range schemaErr.Errors {
			fields = append(fields, map[string]string{"field": fe.Field, "message": fe.Message})
		}
		body["fields"] = fields
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]map[string]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, map[string]string{"field": fe.Namespace(), "message": "failed on " + fe.Tag()})
		}
		body["fields"] = fields
	}

	return body
}
