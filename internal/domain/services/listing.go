package services

import (
	"context"

	"cumulus/internal/domain/models"
)

// ListingService is the read-only composition of the access resolver
// and the entity tree.
type ListingService interface {
	// SharedWithMe lists entities with a user-specific share record for
	// the caller. Unless includeAll, only the highest shared ancestor
	// surfaces and caller-owned entities are dropped.
	SharedWithMe(ctx context.Context, caller models.Caller, opts SharedWithMeOptions) ([]SharedEntity, error)

	// AllMyEntities is the union of owned entities (minus the home
	// container) and entities shared with the caller, deduplicated.
	AllMyEntities(ctx context.Context, caller models.Caller) ([]models.Entity, error)

	// FileWithPermissions returns a file entity together with the
	// caller's effective access. Rejects folders, trashed targets and
	// targets under a trashed ancestor.
	FileWithPermissions(ctx context.Context, caller models.Caller, entityID string) (*EntityWithAccess, error)

	// DocumentWithPermissions returns a document body under the same
	// access gate as FileWithPermissions.
	DocumentWithPermissions(ctx context.Context, caller models.Caller, entityID string) (*DocumentWithAccess, error)
}

// SharedWithMeOptions controls sorting and filtering of SharedWithMe.
type SharedWithMeOptions struct {
	SortField  string `json:"sort_field"` // title | created | modified | size
	Descending bool   `json:"descending"`
	IncludeAll bool   `json:"include_all"`
}

// SharedEntity pairs an entity with the share flags granting it.
type SharedEntity struct {
	models.Entity
	Access models.Access `json:"access"`
}

// EntityWithAccess pairs an entity with the caller's effective access.
type EntityWithAccess struct {
	Entity *models.Entity `json:"entity"`
	Access models.Access  `json:"access"`
}

// DocumentWithAccess pairs a document body with the caller's access.
type DocumentWithAccess struct {
	Document *models.Document `json:"document"`
	Access   models.Access    `json:"access"`
}
