package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
	"cumulus/internal/domain/services"
)

const maxTitleLength = 255

var (
	titleRules = []validation.Rule{
		validation.Required,
		validation.Length(1, maxTitleLength),
		validation.Match(regexp.MustCompile(`^[^/]+$`)).Error("title cannot contain slashes"),
	}
	hexColorRule = validation.Match(regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)).Error("color must be a hex value")
)

type treeMutator struct {
	entities      repositories.EntityRepository
	perms         repositories.PermissionRepository
	docs          repositories.DocumentRepository
	activities    repositories.ActivityRepository
	favorites     repositories.FavoriteRepository
	notifications repositories.NotificationRepository
	access        services.AccessResolver
	home          services.HomeResolver
	store         services.ContentStore
	thumbs        services.ThumbnailDispatcher
	txManager     repositories.TransactionManager
	logger        *slog.Logger
}

// NewTreeMutator creates a new tree mutator
func NewTreeMutator(
	entities repositories.EntityRepository,
	perms repositories.PermissionRepository,
	docs repositories.DocumentRepository,
	activities repositories.ActivityRepository,
	favorites repositories.FavoriteRepository,
	notifications repositories.NotificationRepository,
	access services.AccessResolver,
	home services.HomeResolver,
	store services.ContentStore,
	thumbs services.ThumbnailDispatcher,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.TreeMutator {
	return &treeMutator{
		entities:      entities,
		perms:         perms,
		docs:          docs,
		activities:    activities,
		favorites:     favorites,
		notifications: notifications,
		access:        access,
		home:          home,
		store:         store,
		thumbs:        thumbs,
		txManager:     txManager,
		logger:        logger,
	}
}

// Rename changes the entity's title after checking for a collision
// among active siblings of the same kind and mime type. On collision it
// fails with a suggested alternate title; the caller decides whether to
// retry with it.
func (t *treeMutator) Rename(ctx context.Context, caller models.Caller, entityID, newTitle string) (*models.Entity, error) {
	if err := validation.Validate(newTitle, titleRules...); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return nil, err
	}

	entity, err := t.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	if newTitle == entity.Title {
		return entity, nil
	}

	if entity.ParentID != nil {
		key := repositories.SiblingKey{ParentID: *entity.ParentID, IsGroup: entity.IsGroup, MimeType: entity.MimeType}
		sibling, err := t.entities.FindSibling(ctx, key, newTitle)
		if err != nil {
			return nil, err
		}
		if sibling != nil {
			titles, err := t.entities.SiblingTitles(ctx, key)
			if err != nil {
				return nil, err
			}
			return nil, &domain.NameConflictError{
				Title:      newTitle,
				Suggestion: suggestTitle(newTitle, titles),
				IsGroup:    entity.IsGroup,
			}
		}
	}

	oldTitle := entity.Title
	entity.Title = newTitle
	entity.UpdatedAt = time.Now()

	if err := t.entities.Update(ctx, entity); err != nil {
		return nil, err
	}

	t.logActivity(ctx, caller, entity.ID, "rename",
		fmt.Sprintf("%s renamed %s to %s", caller.UserID, oldTitle, newTitle),
		oldTitle, newTitle)

	return entity, nil
}

// Move reparents the entity. The destination must be a folder outside
// the entity's own subtree; a destination title collision is resolved
// by renaming to the suggestion, and permission inheritance is
// re-applied against the new parent.
func (t *treeMutator) Move(ctx context.Context, caller models.Caller, entityID string, newParentID *string) (*models.Entity, error) {
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return nil, err
	}

	entity, err := t.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	parentID := ""
	if newParentID != nil {
		parentID = *newParentID
	}
	if parentID == "" {
		home, err := t.home.GetOrCreate(ctx, entity.Owner)
		if err != nil {
			return nil, err
		}
		parentID = home.ID
	}

	if entity.ParentID != nil && *entity.ParentID == parentID {
		return entity, nil
	}

	parent, err := t.entities.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsGroup {
		return nil, fmt.Errorf("move into %s: %w", parentID, domain.ErrNotAFolder)
	}

	if parentID == entity.ID {
		return nil, fmt.Errorf("move %s: %w", entityID, domain.ErrSelfContainment)
	}
	ancestors, err := t.entities.Ancestors(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == entity.ID {
			return nil, fmt.Errorf("move %s into its descendant %s: %w", entityID, parentID, domain.ErrSelfContainment)
		}
	}

	key := repositories.SiblingKey{ParentID: parentID, IsGroup: entity.IsGroup, MimeType: entity.MimeType}
	titles, err := t.entities.SiblingTitles(ctx, key)
	if err != nil {
		return nil, err
	}
	newTitle := suggestTitle(entity.Title, titles)

	oldTitle := entity.Title
	err = t.txManager.ExecTx(ctx, func(ctx context.Context) error {
		entity.ParentID = &parentID
		entity.Title = newTitle
		entity.UpdatedAt = time.Now()
		if err := t.entities.Update(ctx, entity); err != nil {
			return err
		}
		return t.inheritFromParent(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	t.logActivity(ctx, caller, entity.ID, "move",
		fmt.Sprintf("%s moved %s", caller.UserID, oldTitle), "", parentID)

	return entity, nil
}

// Trash soft-deletes the entity. Read paths skip inactive entities and
// entities under an inactive ancestor, so the flag flip is local.
func (t *treeMutator) Trash(ctx context.Context, caller models.Caller, entityID string) error {
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return err
	}

	if err := t.entities.SetActive(ctx, entityID, false); err != nil {
		return err
	}

	t.logActivity(ctx, caller, entityID, "trash", fmt.Sprintf("%s trashed %s", caller.UserID, entityID), "", "")

	return nil
}

// Restore undoes a Trash.
func (t *treeMutator) Restore(ctx context.Context, caller models.Caller, entityID string) error {
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return err
	}

	if err := t.entities.SetActive(ctx, entityID, true); err != nil {
		return err
	}

	t.logActivity(ctx, caller, entityID, "restore", fmt.Sprintf("%s restored %s", caller.UserID, entityID), "", "")

	return nil
}

// ChangeColor sets a folder's display color.
func (t *treeMutator) ChangeColor(ctx context.Context, caller models.Caller, entityID, color string) error {
	if err := validation.Validate(color, validation.Required, hexColorRule); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return err
	}

	entity, err := t.entities.GetByID(ctx, entityID)
	if err != nil {
		return err
	}
	if !entity.IsGroup {
		return fmt.Errorf("change color of %s: %w", entityID, domain.ErrNotAFolder)
	}

	entity.Color = &color
	entity.UpdatedAt = time.Now()

	return t.entities.Update(ctx, entity)
}

// ToggleAllowComments flips the comment flag, recursively for folders.
func (t *treeMutator) ToggleAllowComments(ctx context.Context, caller models.Caller, entityID string, allow bool) error {
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return err
	}
	return t.toggleFlag(ctx, entityID, func(e *models.Entity) { e.AllowComments = allow })
}

// ToggleAllowDownload flips the download flag, recursively for folders.
func (t *treeMutator) ToggleAllowDownload(ctx context.Context, caller models.Caller, entityID string, allow bool) error {
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return err
	}
	return t.toggleFlag(ctx, entityID, func(e *models.Entity) { e.AllowDownload = allow })
}

// toggleFlag applies set to the entity and, for folders, to every
// descendant, in one transaction.
func (t *treeMutator) toggleFlag(ctx context.Context, entityID string, set func(*models.Entity)) error {
	root, err := t.entities.GetByID(ctx, entityID)
	if err != nil {
		return err
	}

	return t.txManager.ExecTx(ctx, func(ctx context.Context) error {
		stack := []*models.Entity{root}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			set(node)
			node.UpdatedAt = time.Now()
			if err := t.entities.Update(ctx, node); err != nil {
				return err
			}

			if !node.IsGroup {
				continue
			}
			childIDs, err := t.entities.ChildIDs(ctx, node.ID)
			if err != nil {
				return err
			}
			for _, id := range childIDs {
				child, err := t.entities.GetByID(ctx, id)
				if err != nil {
					return err
				}
				stack = append(stack, child)
			}
		}
		return nil
	})
}

// requireWrite gates a mutation on the caller's effective write
// capability.
func (t *treeMutator) requireWrite(ctx context.Context, caller models.Caller, entityID string) error {
	caps, err := t.access.ResolveEffective(ctx, entityID, caller)
	if err != nil {
		return err
	}
	if !caps.Write {
		return fmt.Errorf("write to %s: %w", entityID, domain.ErrPermissionDenied)
	}
	return nil
}

// logActivity appends to the activity sink. Fire-and-forget: failures
// are logged and never abort the operation that emitted the entry.
func (t *treeMutator) logActivity(ctx context.Context, caller models.Caller, entityID, activityType, message, oldValue, newValue string) {
	activity := &models.Activity{
		ID:       uuid.NewString(),
		EntityID: entityID,
		Type:     activityType,
		Message:  message,
		Actor:    caller.UserID,
		OldValue: oldValue,
		NewValue: newValue,
		At:       time.Now(),
	}
	if err := t.activities.Append(ctx, activity); err != nil {
		t.logger.Warn("activity append failed",
			"entity_id", entityID,
			"type", activityType,
			"error", err,
		)
	}
}
