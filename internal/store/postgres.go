package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/search-wizard/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// Postgres wraps a PostgreSQL connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Migrate creates the tables if they do not exist
func (db *Postgres) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (db *Postgres) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// SaveStructure inserts or replaces the owner's structure of the same name.
// s.ID, UsageCount and timestamps are filled from the stored row.
func (db *Postgres) SaveStructure(ctx context.Context, s *Structure) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO structures (id, owner_id, name, document_type, template, file_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (owner_id, name) DO UPDATE
		   SET document_type = $4, template = $5, file_url = $6, updated_at = NOW()
		 RETURNING id, usage_count, created_at, updated_at`,
		s.ID, s.OwnerID, s.Name, s.DocumentType, string(s.Template), s.FileURL,
	).Scan(&s.ID, &s.UsageCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save structure %s: %w", s.Name, err)
	}
	return nil
}

const structureColumns = `id, owner_id, name, document_type, template::text, file_url, usage_count, created_at, updated_at`

func scanStructure(row pgx.Row) (*Structure, error) {
	var s Structure
	var tmpl string
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.DocumentType, &tmpl, &s.FileURL, &s.UsageCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Template = types.StructureTemplate(tmpl)
	return &s, nil
}

// GetStructure retrieves a structure by owner and name
func (db *Postgres) GetStructure(ctx context.Context, ownerID, name string) (*Structure, error) {
	s, err := scanStructure(db.pool.QueryRow(ctx,
		`SELECT `+structureColumns+` FROM structures WHERE owner_id = $1 AND name = $2`,
		ownerID, name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "structure", Key: name}
		}
		return nil, fmt.Errorf("failed to get structure %s: %w", name, err)
	}
	return s, nil
}

// ListStructures retrieves the owner's structures ordered by name
func (db *Postgres) ListStructures(ctx context.Context, ownerID string) ([]Structure, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+structureColumns+` FROM structures WHERE owner_id = $1 ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list structures: %w", err)
	}
	defer rows.Close()

	var out []Structure
	for rows.Next() {
		s, err := scanStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan structure: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DeleteStructure deletes the owner's structure of that name
func (db *Postgres) DeleteStructure(ctx context.Context, ownerID, name string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM structures WHERE owner_id = $1 AND name = $2`, ownerID, name)
	if err != nil {
		return fmt.Errorf("failed to delete structure: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &NotFoundError{Kind: "structure", Key: name}
	}
	return nil
}

// IncrementUsage bumps the usage counter in a single UPDATE
func (db *Postgres) IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`UPDATE structures SET usage_count = usage_count + $2 WHERE id = $1 RETURNING usage_count`,
		id, delta,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &NotFoundError{Kind: "structure", Key: id.String()}
		}
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return count, nil
}

// SaveDocument inserts a generated document
func (db *Postgres) SaveDocument(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO documents (id, owner_id, project_id, document_type, structure_name, html_content)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		d.ID, d.OwnerID, d.ProjectID, d.DocumentType, d.StructureName, d.HTML,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument retrieves one of the owner's documents
func (db *Postgres) GetDocument(ctx context.Context, ownerID string, id uuid.UUID) (*Document, error) {
	var d Document
	err := db.pool.QueryRow(ctx,
		`SELECT id, owner_id, project_id, document_type, structure_name, html_content, created_at
		 FROM documents WHERE owner_id = $1 AND id = $2`,
		ownerID, id,
	).Scan(&d.ID, &d.OwnerID, &d.ProjectID, &d.DocumentType, &d.StructureName, &d.HTML, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "document", Key: id.String()}
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

// ListDocuments retrieves the owner's documents, newest first
func (db *Postgres) ListDocuments(ctx context.Context, ownerID string, filters DocumentFilters) ([]DocumentSummary, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}

	query := `SELECT id, project_id, document_type, length(html_content), created_at
		FROM documents WHERE owner_id = $1`
	args := []any{ownerID}
	argNum := 2

	if filters.ProjectID != "" {
		query += fmt.Sprintf(" AND project_id = $%d", argNum)
		args = append(args, filters.ProjectID)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		var created time.Time
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.DocumentType, &d.Size, &created); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.CreatedAt = created
		out = append(out, d)
	}
	return out, rows.Err()
}
