package repositories

import (
	"context"

	"cumulus/internal/domain/models"
)

// PermissionRepository is the durable (entity, grantee) capability
// store. Grantee is a user id or models.Everyone.
type PermissionRepository interface {
	// Get returns the record for (entityID, grantee), or nil when none
	// exists. Absence is not an error.
	Get(ctx context.Context, entityID, grantee string) (*models.Permission, error)

	// Upsert inserts or replaces the record for (entityID, grantee).
	Upsert(ctx context.Context, perm *models.Permission) error

	// Delete removes the record for (entityID, grantee). Idempotent.
	Delete(ctx context.Context, entityID, grantee string) error

	// DeleteForEntity removes every record for an entity.
	DeleteForEntity(ctx context.Context, entityID string) error

	// ListForEntity lists all records on an entity, including the
	// everyone record.
	ListForEntity(ctx context.Context, entityID string) ([]models.Permission, error)

	// ListForGrantee lists all records held by a specific grantee.
	ListForGrantee(ctx context.Context, grantee string) ([]models.Permission, error)
}
