package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/services"
)

// copyFrame is one pending node in the iterative subtree copy.
type copyFrame struct {
	srcID       string
	dstParentID string
	title       string
}

// Copy duplicates the entity under the destination parent (caller's
// home when nil), recursively for folders, with entirely fresh ids.
// Byte content is duplicated in the content store outside the
// transaction; keys created for a transaction that later aborts are
// deleted again. Returns the new root id.
func (t *treeMutator) Copy(ctx context.Context, caller models.Caller, entityID string, newParentID *string) (string, error) {
	if caller.Guest {
		return "", fmt.Errorf("guest copy: %w", domain.ErrPermissionDenied)
	}

	entity, err := t.entities.GetByID(ctx, entityID)
	if err != nil {
		return "", err
	}

	var parent *models.Entity
	if newParentID == nil || *newParentID == "" {
		parent, err = t.home.GetOrCreate(ctx, caller.UserID)
	} else {
		parent, err = t.entities.GetByID(ctx, *newParentID)
	}
	if err != nil {
		return "", err
	}
	if !parent.IsGroup {
		return "", fmt.Errorf("copy into %s: %w", parent.ID, domain.ErrNotAFolder)
	}

	ok, err := t.access.CanWrite(ctx, parent.ID, caller)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("copy into %s: %w", parent.ID, domain.ErrPermissionDenied)
	}

	// Full ancestor-chain check: the copy gets a fresh id, so the
	// destination must not sit anywhere inside the source subtree.
	if parent.ID == entity.ID {
		return "", fmt.Errorf("copy %s: %w", entityID, domain.ErrSelfContainment)
	}
	ancestors, err := t.entities.Ancestors(ctx, parent.ID)
	if err != nil {
		return "", err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == entity.ID {
			return "", fmt.Errorf("copy %s into its descendant %s: %w", entityID, parent.ID, domain.ErrSelfContainment)
		}
	}

	rootTitle, err := t.freeTitle(ctx, parent.ID, entity.Title, entity.IsGroup, entity.MimeType)
	if err != nil {
		return "", err
	}

	intoCallerHome := parent.IsRoot() && parent.Owner == caller.UserID

	var (
		newRootID   string
		createdKeys []string
		thumbJobs   []services.ThumbnailJob
	)

	err = t.txManager.ExecTx(ctx, func(ctx context.Context) error {
		stack := []copyFrame{{srcID: entity.ID, dstParentID: parent.ID, title: rootTitle}}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			frame := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			src, err := t.entities.GetByID(ctx, frame.srcID)
			if err != nil {
				return err
			}

			dup, keys, err := t.copyOne(ctx, caller, src, frame.dstParentID, frame.title)
			// Keys are tracked even when the node itself failed, so the
			// compensation loop can remove bytes the failing node wrote.
			createdKeys = append(createdKeys, keys...)
			if err != nil {
				return err
			}

			if frame.srcID == entity.ID {
				newRootID = dup.ID
				if intoCallerHome {
					update := models.CapabilityUpdate{Write: models.Bool(true), Share: models.Bool(true)}
					if _, err := mergeGrant(ctx, t.perms, dup.ID, caller.UserID, update); err != nil {
						return err
					}
				}
			}

			if dup.NeedsThumbnail() && dup.StorageKey != nil {
				thumbJobs = append(thumbJobs, services.ThumbnailJob{
					EntityID: dup.ID,
					Key:      *dup.StorageKey,
					MimeType: dup.Mime(),
				})
			}

			if !src.IsGroup {
				continue
			}
			childIDs, err := t.entities.ChildIDs(ctx, src.ID)
			if err != nil {
				return err
			}
			// Reverse push keeps creation order for siblings.
			for i := len(childIDs) - 1; i >= 0; i-- {
				child, err := t.entities.GetByID(ctx, childIDs[i])
				if err != nil {
					return err
				}
				if !child.IsActive {
					continue
				}
				stack = append(stack, copyFrame{srcID: child.ID, dstParentID: dup.ID, title: child.Title})
			}
		}
		return nil
	})
	if err != nil {
		for _, key := range createdKeys {
			if delErr := t.store.Delete(ctx, key); delErr != nil {
				t.logger.Warn("orphaned content after aborted copy", "key", key, "error", delErr)
			}
		}
		return "", err
	}

	for _, job := range thumbJobs {
		t.thumbs.Enqueue(job)
	}

	t.logActivity(ctx, caller, newRootID, "copy",
		fmt.Sprintf("%s copied %s", caller.UserID, entity.Title), entity.ID, newRootID)

	return newRootID, nil
}

// copyOne duplicates a single node under dstParentID: folders as empty
// folders, document files by duplicating the body row, byte files by
// copying the stored content to a key derived from the fresh id.
// Returns the new entity and any storage keys it created.
func (t *treeMutator) copyOne(ctx context.Context, caller models.Caller, src *models.Entity, dstParentID, title string) (*models.Entity, []string, error) {
	now := time.Now()
	dup := &models.Entity{
		ID:            uuid.NewString(),
		Title:         title,
		ParentID:      &dstParentID,
		IsGroup:       src.IsGroup,
		Owner:         caller.UserID,
		IsActive:      true,
		MimeType:      src.MimeType,
		FileSize:      src.FileSize,
		FileExt:       src.FileExt,
		Color:         src.Color,
		AllowComments: src.AllowComments,
		AllowDownload: src.AllowDownload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var createdKeys []string
	switch {
	case src.IsGroup:
		// nothing extra

	case src.HasDocument():
		newDocID, err := t.docs.Duplicate(ctx, *src.DocumentID, title)
		if err != nil {
			return nil, nil, err
		}
		dup.DocumentID = &newDocID

	case src.HasStorage():
		ext := ""
		if src.FileExt != nil {
			ext = *src.FileExt
		}
		dstKey := dup.ID + ext
		occupied, err := t.store.Exists(ctx, dstKey)
		if err != nil {
			return nil, nil, err
		}
		if occupied {
			return nil, nil, fmt.Errorf("destination key %s: %w", dstKey, domain.ErrAlreadyExists)
		}
		if err := t.store.Copy(ctx, *src.StorageKey, dstKey); err != nil {
			return nil, nil, err
		}
		createdKeys = append(createdKeys, dstKey)
		dup.StorageKey = &dstKey
	}

	if err := t.entities.Create(ctx, dup); err != nil {
		return nil, createdKeys, err
	}
	if err := t.inheritFromParent(ctx, dup); err != nil {
		return nil, createdKeys, err
	}
	return dup, createdKeys, nil
}
