package service

import (
	"context"
	"fmt"
	"time"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
)

const storageDeleteAttempts = 3

// Delete hard-deletes the entity and its whole subtree. Authorization
// is checked for every node before anything is mutated; the rows and
// their dependent records commit away together, and backing storage is
// cleaned up afterwards with bounded retry. A storage key that cannot
// be removed is logged and left behind rather than resurrecting the
// logical record.
func (t *treeMutator) Delete(ctx context.Context, caller models.Caller, entityID string) error {
	if err := t.requireWrite(ctx, caller, entityID); err != nil {
		return err
	}

	var doomed []*models.Entity

	err := t.txManager.ExecTx(ctx, func(ctx context.Context) error {
		// Pre-order collection pass. Every node is permission-checked
		// here so a deep denial aborts before any row is touched.
		root, err := t.entities.GetByID(ctx, entityID)
		if err != nil {
			return err
		}
		stack := []*models.Entity{root}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if node.ID != entityID {
				ok, err := t.access.CanWrite(ctx, node.ID, caller)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("delete %s: %w", node.ID, domain.ErrPermissionDenied)
				}
			}
			doomed = append(doomed, node)

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

		// Removal pass in reverse pre-order, so children go before
		// their parents and the parent-id foreign key never dangles.
		for i := len(doomed) - 1; i >= 0; i-- {
			node := doomed[i]
			if err := t.perms.DeleteForEntity(ctx, node.ID); err != nil {
				return err
			}
			if err := t.favorites.DeleteForEntity(ctx, node.ID); err != nil {
				return err
			}
			if err := t.activities.DeleteForEntity(ctx, node.ID); err != nil {
				return err
			}
			if err := t.notifications.DeleteForEntity(ctx, node.ID); err != nil {
				return err
			}
			if node.HasDocument() {
				if err := t.docs.Delete(ctx, *node.DocumentID); err != nil {
					return err
				}
			}
			if err := t.entities.Delete(ctx, node.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, node := range doomed {
		if node.HasStorage() {
			t.deleteStorageKey(ctx, *node.StorageKey)
		}
		if node.NeedsThumbnail() {
			t.deleteThumbnail(ctx, node.ID)
		}
	}

	return nil
}

// deleteStorageKey removes a content key with bounded retry. Failures
// end up in the log only; the rows are already gone.
func (t *treeMutator) deleteStorageKey(ctx context.Context, key string) {
	var err error
	for attempt := 1; attempt <= storageDeleteAttempts; attempt++ {
		if err = t.store.Delete(ctx, key); err == nil {
			return
		}
		select {
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		case <-ctx.Done():
			t.logger.Error("content delete abandoned, key orphaned", "key", key, "error", ctx.Err())
			return
		}
	}
	t.logger.Error("content delete failed, key orphaned",
		"key", key,
		"attempts", storageDeleteAttempts,
		"error", err,
	)
}

func (t *treeMutator) deleteThumbnail(ctx context.Context, entityID string) {
	var err error
	for attempt := 1; attempt <= storageDeleteAttempts; attempt++ {
		if err = t.thumbs.DeleteThumbnail(ctx, entityID); err == nil {
			return
		}
		select {
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		case <-ctx.Done():
			t.logger.Error("thumbnail delete abandoned", "entity_id", entityID, "error", ctx.Err())
			return
		}
	}
	t.logger.Error("thumbnail delete failed",
		"entity_id", entityID,
		"attempts", storageDeleteAttempts,
		"error", err,
	)
}
