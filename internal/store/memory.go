package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by the CLI and tests
type Memory struct {
	mu         sync.Mutex
	structures map[string]*Structure // owner + "\x00" + name
	documents  map[uuid.UUID]*Document
	now        func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		structures: map[string]*Structure{},
		documents:  map[uuid.UUID]*Document{},
		now:        time.Now,
	}
}

func structureKey(ownerID, name string) string {
	return ownerID + "\x00" + name
}

// SaveStructure implements Store
func (m *Memory) SaveStructure(_ context.Context, s *Structure) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := structureKey(s.OwnerID, s.Name)
	if existing, ok := m.structures[key]; ok {
		s.ID = existing.ID
		s.UsageCount = existing.UsageCount
		s.CreatedAt = existing.CreatedAt
	} else {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.UsageCount = 0
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	stored := *s
	m.structures[key] = &stored
	return nil
}

// GetStructure implements Store
func (m *Memory) GetStructure(_ context.Context, ownerID, name string) (*Structure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.structures[structureKey(ownerID, name)]
	if !ok {
		return nil, &NotFoundError{Kind: "structure", Key: name}
	}
	out := *s
	return &out, nil
}

// ListStructures implements Store
func (m *Memory) ListStructures(_ context.Context, ownerID string) ([]Structure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Structure
	for _, s := range m.structures {
		if s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteStructure implements Store
func (m *Memory) DeleteStructure(_ context.Context, ownerID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := structureKey(ownerID, name)
	if _, ok := m.structures[key]; !ok {
		return &NotFoundError{Kind: "structure", Key: name}
	}
	delete(m.structures, key)
	return nil
}

// IncrementUsage implements Store
func (m *Memory) IncrementUsage(_ context.Context, id uuid.UUID, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.structures {
		if s.ID == id {
			s.UsageCount += delta
			return s.UsageCount, nil
		}
	}
	return 0, &NotFoundError{Kind: "structure", Key: id.String()}
}

// SaveDocument implements Store
func (m *Memory) SaveDocument(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = m.now()
	stored := *d
	m.documents[d.ID] = &stored
	return nil
}

// GetDocument implements Store
func (m *Memory) GetDocument(_ context.Context, ownerID string, id uuid.UUID) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok || d.OwnerID != ownerID {
		return nil, &NotFoundError{Kind: "document", Key: id.String()}
	}
	out := *d
	return &out, nil
}

// ListDocuments implements Store
func (m *Memory) ListDocuments(_ context.Context, ownerID string, filters DocumentFilters) ([]DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}

	var docs []*Document
	for _, d := range m.documents {
		if d.OwnerID != ownerID {
			continue
		}
		if filters.ProjectID != "" && d.ProjectID != filters.ProjectID {
			continue
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID.String() < docs[j].ID.String()
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if len(docs) > filters.Limit {
		docs = docs[:filters.Limit]
	}
	out := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		out[i] = DocumentSummary{
			ID:           d.ID,
			ProjectID:    d.ProjectID,
			DocumentType: d.DocumentType,
			Size:         len(d.HTML),
			CreatedAt:    d.CreatedAt,
		}
	}
	return out, nil
}

// Close does nothing
func (m *Memory) Close() {}
