package services

import (
	"context"

	"cumulus/internal/domain/models"
)

// AccessResolver computes effective access for (entity, caller):
// the user-specific record first, else the general (everyone) record,
// else no access. Absence of access is reported as nil, never as an
// error; callers decide whether that is fatal.
type AccessResolver interface {
	// GetGeneralAccess returns the everyone record's {read, write},
	// or nil when the entity has no general access.
	GetGeneralAccess(ctx context.Context, entityID string) (*models.Access, error)

	// GetUserAccess returns the caller's {read, write}, falling back
	// to general access when no user record exists. Guests resolve
	// through the general path only.
	GetUserAccess(ctx context.Context, entityID string, caller models.Caller) (*models.Access, error)

	// ResolveEffective returns the full capability set used by
	// permission gates. The entity owner always resolves to full
	// capabilities.
	ResolveEffective(ctx context.Context, entityID string, caller models.Caller) (models.Capabilities, error)

	// CanWrite reports whether the caller may mutate the entity.
	CanWrite(ctx context.Context, entityID string, caller models.Caller) (bool, error)
}
