// Package store persists structure templates and generated documents.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Store is the persistence collaborator of the service. Structures are
// keyed by owner and name; documents by owner and id.
type Store interface {
	SaveStructure(ctx context.Context, s *Structure) error
	GetStructure(ctx context.Context, ownerID, name string) (*Structure, error)
	ListStructures(ctx context.Context, ownerID string) ([]Structure, error)
	DeleteStructure(ctx context.Context, ownerID, name string) error
	// IncrementUsage adds delta to a structure's usage count atomically and
	// returns the new count
	IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (int, error)

	SaveDocument(ctx context.Context, d *Document) error
	GetDocument(ctx context.Context, ownerID string, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, ownerID string, filters DocumentFilters) ([]DocumentSummary, error)

	Close()
}

// StructureNames returns the names of structures in order
func StructureNames(structures []Structure) []string {
	names := make([]string, len(structures))
	for i, s := range structures {
		names[i] = s.Name
	}
	return names
}

// LookupStructure gets a structure and, when it is missing, fills the
// NotFoundError with the names the owner has.
func LookupStructure(ctx context.Context, s Store, ownerID, name string) (*Structure, error) {
	st, err := s.GetStructure(ctx, ownerID, name)
	if err == nil {
		return st, nil
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}
	if all, lerr := s.ListStructures(ctx, ownerID); lerr == nil {
		nf.Available = StructureNames(all)
	}
	return nil, nf
}
