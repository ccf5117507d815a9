package services

import (
	"context"
	"time"

	"cumulus/internal/domain/models"
)

// ShareManager mutates the permission store for a single entity.
// Sharing never cascades (descendants inherit only at creation time);
// unsharing cascades depth-first over the whole subtree.
type ShareManager interface {
	// Share upserts the (entity, grantee) record. Only flags present in
	// the update are set; omitted flags keep their stored value, or
	// default to false when the record is new. The caller must be the
	// entity owner, hold share capability, or own a strict ancestor.
	Share(ctx context.Context, caller models.Caller, entityID, grantee string, update models.CapabilityUpdate) (*models.Permission, error)

	// Unshare deletes the (entity, grantee) record if present and
	// cascades to every descendant. Rejected when the grantee owns a
	// strict ancestor of the entity.
	Unshare(ctx context.Context, caller models.Caller, entityID, grantee string) error

	// SetGeneralAccess grants or revokes the everyone record.
	// Owner only. Revoking cascades like Unshare.
	SetGeneralAccess(ctx context.Context, caller models.Caller, entityID string, req *GeneralAccessRequest) error

	// SharedWith lists user grants on an entity, excluding the caller,
	// the entity owner and the everyone record. Requires write access.
	SharedWith(ctx context.Context, caller models.Caller, entityID string) ([]SharedWithEntry, error)
}

// GeneralAccessRequest carries the everyone-record flags. Read=false
// revokes general access entirely.
type GeneralAccessRequest struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	Comment bool `json:"comment"`
}

// SharedWithEntry is one row of the shared-with listing.
type SharedWithEntry struct {
	User         string              `json:"user"`
	Capabilities models.Capabilities `json:"capabilities"`
	LastModified time.Time           `json:"last_modified"`
}
