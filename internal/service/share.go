package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
	"cumulus/internal/domain/services"
)

type shareManager struct {
	entities  repositories.EntityRepository
	perms     repositories.PermissionRepository
	access    services.AccessResolver
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewShareManager creates a new share manager
func NewShareManager(
	entities repositories.EntityRepository,
	perms repositories.PermissionRepository,
	access services.AccessResolver,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.ShareManager {
	return &shareManager{
		entities:  entities,
		perms:     perms,
		access:    access,
		txManager: txManager,
		logger:    logger,
	}
}

// Share upserts the (entity, grantee) record with partial-update
// semantics. Sharing never cascades: descendants inherit a share only
// when they are created.
func (s *shareManager) Share(ctx context.Context, caller models.Caller, entityID, grantee string, update models.CapabilityUpdate) (*models.Permission, error) {
	if caller.Guest {
		return nil, fmt.Errorf("share: %w", domain.ErrPermissionDenied)
	}
	if err := validation.Validate(grantee, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: grantee is required", domain.ErrValidation)
	}

	entity, err := s.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeShare(ctx, caller, entity); err != nil {
		return nil, err
	}

	perm, err := mergeGrant(ctx, s.perms, entityID, grantee, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("entity shared",
		"entity_id", entityID,
		"grantee", grantee,
		"caller", caller.UserID,
		"capabilities", perm.Capabilities,
	)

	return perm, nil
}

// authorizeShare allows the entity owner, holders of share capability,
// and owners of any strict ancestor. The ancestor walk stops at the
// first caller-owned ancestor: one is enough.
func (s *shareManager) authorizeShare(ctx context.Context, caller models.Caller, entity *models.Entity) error {
	if entity.Owner == caller.UserID {
		return nil
	}

	caps, err := s.access.ResolveEffective(ctx, entity.ID, caller)
	if err != nil {
		return err
	}
	if caps.Share {
		return nil
	}

	ancestors, err := s.entities.Ancestors(ctx, entity.ID)
	if err != nil {
		return err
	}
	for _, ancestor := range ancestors {
		if ancestor.Owner == caller.UserID {
			return nil
		}
	}

	return fmt.Errorf("not permitted to share %s: %w", entity.ID, domain.ErrPermissionDenied)
}

// Unshare deletes the (entity, grantee) record and cascades over the
// subtree. The full ancestor chain is checked before any state is
// touched: an ancestor-owner's implicit access cannot be revoked at a
// descendant.
func (s *shareManager) Unshare(ctx context.Context, caller models.Caller, entityID, grantee string) error {
	entity, err := s.entities.GetByID(ctx, entityID)
	if err != nil {
		return err
	}

	ancestors, err := s.entities.Ancestors(ctx, entityID)
	if err != nil {
		return err
	}
	for _, ancestor := range ancestors {
		if ancestor.Owner == grantee {
			return fmt.Errorf("%s owns parent folder %s: %w", grantee, ancestor.ID, domain.ErrPermissionDenied)
		}
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.unshareSubtree(ctx, entity, grantee)
	})
	if err != nil {
		return err
	}

	s.logger.Info("entity unshared",
		"entity_id", entityID,
		"grantee", grantee,
		"caller", caller.UserID,
	)

	return nil
}

// unshareSubtree walks the subtree with an explicit stack (depth-first,
// pre-order; sibling order is insignificant) deleting the grantee's
// record at every node. Deleting an absent record is a no-op, which
// makes the whole operation idempotent.
func (s *shareManager) unshareSubtree(ctx context.Context, root *models.Entity, grantee string) error {
	stack := []*models.Entity{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := s.perms.Delete(ctx, node.ID, grantee); err != nil {
			return err
		}

		if !node.IsGroup {
			continue
		}

		// Snapshot the child list so nodes created mid-walk are not
		// picked up.
		childIDs, err := s.entities.ChildIDs(ctx, node.ID)
		if err != nil {
			return err
		}
		if len(childIDs) > 0 && node.Owner == grantee {
			// The grantee owns this folder, so their access to its
			// children cannot be revoked from here.
			return fmt.Errorf("%s owns folder %s: %w", grantee, node.ID, domain.ErrPermissionDenied)
		}
		for _, id := range childIDs {
			child, err := s.entities.GetByID(ctx, id)
			if err != nil {
				return err
			}
			stack = append(stack, child)
		}
	}

	return nil
}

// SetGeneralAccess grants or revokes the everyone record. Owner only.
func (s *shareManager) SetGeneralAccess(ctx context.Context, caller models.Caller, entityID string, req *services.GeneralAccessRequest) error {
	entity, err := s.entities.GetByID(ctx, entityID)
	if err != nil {
		return err
	}
	if caller.Guest || entity.Owner != caller.UserID {
		return fmt.Errorf("set general access on %s: %w", entityID, domain.ErrPermissionDenied)
	}

	if !req.Read {
		return s.Unshare(ctx, caller, entityID, models.Everyone)
	}

	// Share stays false on the everyone record: anonymous readers
	// never get to grant access further.
	update := models.CapabilityUpdate{
		Read:    models.Bool(true),
		Write:   models.Bool(req.Write),
		Comment: models.Bool(req.Comment),
		Share:   models.Bool(false),
	}
	if _, err := mergeGrant(ctx, s.perms, entityID, models.Everyone, update); err != nil {
		return err
	}

	s.logger.Info("general access set",
		"entity_id", entityID,
		"read", req.Read,
		"write", req.Write,
	)

	return nil
}

// SharedWith lists user grants on an entity for the sharing dialog.
func (s *shareManager) SharedWith(ctx context.Context, caller models.Caller, entityID string) ([]services.SharedWithEntry, error) {
	entity, err := s.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	canWrite, err := s.access.CanWrite(ctx, entityID, caller)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, fmt.Errorf("list shares of %s: %w", entityID, domain.ErrPermissionDenied)
	}

	records, err := s.perms.ListForEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	entries := make([]services.SharedWithEntry, 0, len(records))
	for _, rec := range records {
		if rec.Grantee == models.Everyone || rec.Grantee == caller.UserID || rec.Grantee == entity.Owner {
			continue
		}
		entries = append(entries, services.SharedWithEntry{
			User:         rec.Grantee,
			Capabilities: rec.Capabilities,
			LastModified: rec.UpdatedAt,
		})
	}

	return entries, nil
}
