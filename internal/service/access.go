package service

import (
	"context"
	"log/slog"

	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
	"cumulus/internal/domain/services"
)

type accessResolver struct {
	entities repositories.EntityRepository
	perms    repositories.PermissionRepository
	logger   *slog.Logger
}

// NewAccessResolver creates a new access resolver
func NewAccessResolver(
	entities repositories.EntityRepository,
	perms repositories.PermissionRepository,
	logger *slog.Logger,
) services.AccessResolver {
	return &accessResolver{
		entities: entities,
		perms:    perms,
		logger:   logger,
	}
}

// GetGeneralAccess returns the everyone record's {read, write}, or nil.
func (s *accessResolver) GetGeneralAccess(ctx context.Context, entityID string) (*models.Access, error) {
	perm, err := s.perms.Get(ctx, entityID, models.Everyone)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, nil
	}
	return &models.Access{Read: perm.Read, Write: perm.Write}, nil
}

// GetUserAccess returns the caller's {read, write} from the
// user-specific record, falling back to general access. Guests never
// resolve through the user-specific path.
func (s *accessResolver) GetUserAccess(ctx context.Context, entityID string, caller models.Caller) (*models.Access, error) {
	if caller.Guest {
		return s.GetGeneralAccess(ctx, entityID)
	}

	perm, err := s.perms.Get(ctx, entityID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if perm != nil {
		return &models.Access{Read: perm.Read, Write: perm.Write}, nil
	}

	return s.GetGeneralAccess(ctx, entityID)
}

// ResolveEffective returns the full capability set for permission
// gates. The entity owner always holds full capabilities; otherwise
// the user record wins over the everyone record, and absence of both
// means no access (never an error).
func (s *accessResolver) ResolveEffective(ctx context.Context, entityID string, caller models.Caller) (models.Capabilities, error) {
	var none models.Capabilities

	if !caller.Guest {
		entity, err := s.entities.GetByID(ctx, entityID)
		if err != nil {
			return none, err
		}
		if entity.Owner == caller.UserID {
			return models.FullCapabilities(), nil
		}

		perm, err := s.perms.Get(ctx, entityID, caller.UserID)
		if err != nil {
			return none, err
		}
		if perm != nil {
			return perm.Capabilities, nil
		}
	}

	general, err := s.perms.Get(ctx, entityID, models.Everyone)
	if err != nil {
		return none, err
	}
	if general != nil {
		return general.Capabilities, nil
	}

	return none, nil
}

// CanWrite reports whether the caller may mutate the entity.
func (s *accessResolver) CanWrite(ctx context.Context, entityID string, caller models.Caller) (bool, error) {
	caps, err := s.ResolveEffective(ctx, entityID, caller)
	if err != nil {
		return false, err
	}
	return caps.Write, nil
}
