package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
)

// mergeGrant applies a partial capability update onto the stored
// (entity, grantee) record: present fields overwrite, absent fields
// keep the stored value, or default to false when the record is new.
// This is the single implementation of the partial-update semantics
// shared by sharing, inheritance and copy auto-shares.
func mergeGrant(ctx context.Context, perms repositories.PermissionRepository, entityID, grantee string, update models.CapabilityUpdate) (*models.Permission, error) {
	existing, err := perms.Get(ctx, entityID, grantee)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	perm := &models.Permission{
		ID:        uuid.NewString(),
		EntityID:  entityID,
		Grantee:   grantee,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		perm.ID = existing.ID
		perm.CreatedAt = existing.CreatedAt
		perm.Capabilities = existing.Capabilities
	}
	perm.Capabilities = update.Apply(perm.Capabilities)

	if err := perms.Upsert(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}
