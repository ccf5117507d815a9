package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{pool: config.Pool}
}

// Create inserts a new document body.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		doc.ID, doc.Title, doc.Content, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT id, title, content, created_at, updated_at FROM documents WHERE id = $1`

	var doc models.Document
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Title, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// Duplicate copies the document body under a fresh id.
func (r *PostgresDocumentRepository) Duplicate(ctx context.Context, id, newTitle string) (string, error) {
	newID := uuid.NewString()
	now := time.Now()

	query := `
		INSERT INTO documents (id, title, content, created_at, updated_at)
		SELECT $1, $2, content, $3, $3 FROM documents WHERE id = $4
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, newID, newTitle, now, id)
	if err != nil {
		return "", fmt.Errorf("duplicate document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return "", fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return newID, nil
}

// Delete removes a document body. Idempotent.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	return nil
}
