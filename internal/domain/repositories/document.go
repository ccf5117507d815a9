package repositories

import (
	"context"

	"cumulus/internal/domain/models"
)

// DocumentRepository stores rich-text document bodies. The tree core
// only creates, duplicates, reads and deletes them by id.
type DocumentRepository interface {
	// Create inserts a new document body.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document. Returns domain.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// Duplicate copies the document body under a fresh id and returns
	// the new id.
	Duplicate(ctx context.Context, id, newTitle string) (string, error)

	// Delete removes a document body. Idempotent.
	Delete(ctx context.Context, id string) error
}
