package repositories

import (
	"context"

	"cumulus/internal/domain/models"
)

// SiblingKey identifies the uniqueness scope for titles: active
// siblings under the same parent with the same kind and mime type.
type SiblingKey struct {
	ParentID string
	IsGroup  bool
	MimeType *string
}

// EntityRepository is the tree-access capability injected into the
// services. Recursive operations walk the tree through ChildIDs rather
// than self-referential node objects.
type EntityRepository interface {
	// Create inserts a new entity row.
	Create(ctx context.Context, entity *models.Entity) error

	// GetByID retrieves an entity. Returns domain.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Entity, error)

	// Update persists every mutable column of an entity row.
	Update(ctx context.Context, entity *models.Entity) error

	// Delete removes the entity row only; dependent records are the
	// caller's responsibility.
	Delete(ctx context.Context, id string) error

	// SetActive flips the soft-delete flag.
	SetActive(ctx context.Context, id string, active bool) error

	// ChildIDs lists ids of all direct children, active or not,
	// in creation order.
	ChildIDs(ctx context.Context, parentID string) ([]string, error)

	// ListChildren lists all direct children.
	ListChildren(ctx context.Context, parentID string) ([]models.Entity, error)

	// Ancestors returns the strict ancestor chain of an entity,
	// nearest parent first, root last.
	Ancestors(ctx context.Context, id string) ([]models.Entity, error)

	// FindSibling returns the active sibling holding the given title
	// within the key's scope, or nil when the title is free.
	FindSibling(ctx context.Context, key SiblingKey, title string) (*models.Entity, error)

	// SiblingTitles lists the titles of all active siblings in the
	// key's scope.
	SiblingTitles(ctx context.Context, key SiblingKey) ([]string, error)

	// ListOwned lists all active entities owned by a user.
	ListOwned(ctx context.Context, owner string) ([]models.Entity, error)

	// ListByIDs loads entities for a set of ids; missing ids are skipped.
	ListByIDs(ctx context.Context, ids []string) ([]models.Entity, error)

	// GetRoot returns the root (home) container owned by a user, or
	// domain.ErrNotFound when the user has none yet.
	GetRoot(ctx context.Context, owner string) (*models.Entity, error)
}
