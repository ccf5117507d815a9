package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
	"cumulus/internal/domain/services"
)

type listingService struct {
	entities repositories.EntityRepository
	perms    repositories.PermissionRepository
	docs     repositories.DocumentRepository
	access   services.AccessResolver
	logger   *slog.Logger
}

// NewListingService creates a new listing service
func NewListingService(
	entities repositories.EntityRepository,
	perms repositories.PermissionRepository,
	docs repositories.DocumentRepository,
	access services.AccessResolver,
	logger *slog.Logger,
) services.ListingService {
	return &listingService{
		entities: entities,
		perms:    perms,
		docs:     docs,
		access:   access,
		logger:   logger,
	}
}

// SharedWithMe lists entities carrying a user-specific share record for
// the caller. Unless IncludeAll, entities whose parent is itself in the
// shared set are collapsed into that parent, and caller-owned entities
// are dropped.
func (l *listingService) SharedWithMe(ctx context.Context, caller models.Caller, opts services.SharedWithMeOptions) ([]services.SharedEntity, error) {
	if caller.Guest {
		return []services.SharedEntity{}, nil
	}

	records, err := l.perms.ListForGrantee(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []services.SharedEntity{}, nil
	}

	// At most one record exists per (entity, grantee) pair, enforced by
	// the unique index on permissions, so overwriting on key collision
	// never discards a distinct grant.
	byEntity := make(map[string]models.Permission, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		byEntity[record.EntityID] = record
		ids = append(ids, record.EntityID)
	}

	entities, err := l.entities.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	inSet := make(map[string]struct{}, len(entities))
	for _, entity := range entities {
		inSet[entity.ID] = struct{}{}
	}

	result := make([]services.SharedEntity, 0, len(entities))
	for _, entity := range entities {
		if !entity.IsActive {
			continue
		}
		if !opts.IncludeAll {
			if entity.Owner == caller.UserID {
				continue
			}
			if entity.ParentID != nil {
				if _, shared := inSet[*entity.ParentID]; shared {
					continue
				}
			}
		}
		record := byEntity[entity.ID]
		result = append(result, services.SharedEntity{
			Entity: entity,
			Access: models.Access{Read: record.Read, Write: record.Write},
		})
	}

	sortShared(result, opts)
	return result, nil
}

// AllMyEntities is the union of actively owned entities (minus the
// home container) and everything shared with the caller.
func (l *listingService) AllMyEntities(ctx context.Context, caller models.Caller) ([]models.Entity, error) {
	if caller.Guest {
		return []models.Entity{}, nil
	}

	owned, err := l.entities.ListOwned(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	shared, err := l.SharedWithMe(ctx, caller, services.SharedWithMeOptions{IncludeAll: true})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned)+len(shared))
	result := make([]models.Entity, 0, len(owned)+len(shared))
	for _, entity := range owned {
		if entity.IsRoot() {
			continue
		}
		seen[entity.ID] = struct{}{}
		result = append(result, entity)
	}
	for _, s := range shared {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		result = append(result, s.Entity)
	}
	return result, nil
}

// FileWithPermissions resolves the caller's access to a file and
// returns both. The access gate runs before the entity is exposed:
// no access resolves to PermissionDenied regardless of whether the
// entity exists.
func (l *listingService) FileWithPermissions(ctx context.Context, caller models.Caller, entityID string) (*services.EntityWithAccess, error) {
	access, entity, err := l.gateEntity(ctx, caller, entityID)
	if err != nil {
		return nil, err
	}
	if entity.IsGroup {
		return nil, fmt.Errorf("entity %s: %w", entityID, domain.ErrIsADirectory)
	}
	return &services.EntityWithAccess{Entity: entity, Access: *access}, nil
}

// DocumentWithPermissions returns the document body behind a file
// entity, under the same access gate as FileWithPermissions.
func (l *listingService) DocumentWithPermissions(ctx context.Context, caller models.Caller, entityID string) (*services.DocumentWithAccess, error) {
	access, entity, err := l.gateEntity(ctx, caller, entityID)
	if err != nil {
		return nil, err
	}
	if !entity.HasDocument() {
		return nil, fmt.Errorf("entity %s has no document body: %w", entityID, domain.ErrNotFound)
	}
	doc, err := l.docs.GetByID(ctx, *entity.DocumentID)
	if err != nil {
		return nil, err
	}
	return &services.DocumentWithAccess{Document: doc, Access: *access}, nil
}

// gateEntity resolves access, loads the entity, and rejects trashed
// targets and targets under a trashed ancestor.
func (l *listingService) gateEntity(ctx context.Context, caller models.Caller, entityID string) (*models.Access, *models.Entity, error) {
	var (
		access *models.Access
		err    error
	)
	if caller.Guest {
		access, err = l.access.GetGeneralAccess(ctx, entityID)
	} else {
		access, err = l.access.GetUserAccess(ctx, entityID, caller)
	}
	if err != nil {
		return nil, nil, err
	}
	// Presence of a record is the gate; a record with read unset still
	// surfaces the entity with its flags.
	if access == nil {
		return nil, nil, fmt.Errorf("read %s: %w", entityID, domain.ErrPermissionDenied)
	}

	entity, err := l.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, nil, err
	}

	ancestors, err := l.entities.Ancestors(ctx, entityID)
	if err != nil {
		return nil, nil, err
	}
	for _, ancestor := range ancestors {
		if !ancestor.IsActive {
			return nil, nil, fmt.Errorf("ancestor %s of %s is trashed: %w", ancestor.ID, entityID, domain.ErrParentDeleted)
		}
	}

	if !entity.IsActive {
		return nil, nil, fmt.Errorf("entity %s: %w", entityID, domain.ErrInactive)
	}
	return access, entity, nil
}

func sortShared(items []services.SharedEntity, opts services.SharedWithMeOptions) {
	less := func(a, b services.SharedEntity) bool { return a.Title < b.Title }
	switch opts.SortField {
	case "created":
		less = func(a, b services.SharedEntity) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "modified":
		less = func(a, b services.SharedEntity) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "size":
		less = func(a, b services.SharedEntity) bool { return a.FileSize < b.FileSize }
	}
	sort.SliceStable(items, func(i, j int) bool {
		if opts.Descending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
