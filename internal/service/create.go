package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
	"cumulus/internal/domain/services"
)

// CreateFolder inserts a new folder under the parent (caller's home
// when nil). The title is auto-resolved against active siblings and
// the parent's permission records are copied onto the new folder.
func (t *treeMutator) CreateFolder(ctx context.Context, caller models.Caller, req *services.CreateFolderRequest) (*models.Entity, error) {
	if err := validation.Validate(req.Title, titleRules...); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.Color != nil {
		if err := validation.Validate(*req.Color, hexColorRule); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}

	parent, err := t.resolveParent(ctx, caller, req.ParentID)
	if err != nil {
		return nil, err
	}

	title, err := t.freeTitle(ctx, parent.ID, req.Title, true, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entity := &models.Entity{
		ID:            uuid.NewString(),
		Title:         title,
		ParentID:      &parent.ID,
		IsGroup:       true,
		Owner:         caller.UserID,
		IsActive:      true,
		Color:         req.Color,
		AllowComments: true,
		AllowDownload: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := t.insertWithInheritance(ctx, entity); err != nil {
		return nil, err
	}

	t.logActivity(ctx, caller, entity.ID, "create",
		fmt.Sprintf("%s created folder %s", caller.UserID, title), "", "")

	return entity, nil
}

// CreateFile inserts a new byte-backed file. Content lands in the
// content store before the row exists; a failed insert compensates by
// deleting the key again.
func (t *treeMutator) CreateFile(ctx context.Context, caller models.Caller, req *services.CreateFileRequest) (*models.Entity, error) {
	if err := validation.Validate(req.Title, titleRules...); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.Content == nil {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	parent, err := t.resolveParent(ctx, caller, req.ParentID)
	if err != nil {
		return nil, err
	}

	mimeType := req.MimeType
	title, err := t.freeTitle(ctx, parent.ID, req.Title, false, &mimeType)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ext := filepath.Ext(title)
	key := id + ext

	size, err := t.store.Write(ctx, key, req.Content)
	if err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}

	now := time.Now()
	entity := &models.Entity{
		ID:            id,
		Title:         title,
		ParentID:      &parent.ID,
		Owner:         caller.UserID,
		IsActive:      true,
		MimeType:      &mimeType,
		FileSize:      size,
		FileExt:       &ext,
		StorageKey:    &key,
		AllowComments: true,
		AllowDownload: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := t.insertWithInheritance(ctx, entity); err != nil {
		if delErr := t.store.Delete(ctx, key); delErr != nil {
			t.logger.Warn("orphaned content after failed insert", "key", key, "error", delErr)
		}
		return nil, err
	}

	if entity.NeedsThumbnail() {
		t.thumbs.Enqueue(services.ThumbnailJob{EntityID: id, Key: key, MimeType: mimeType})
	}

	t.logActivity(ctx, caller, entity.ID, "create",
		fmt.Sprintf("%s uploaded %s", caller.UserID, title), "", "")

	return entity, nil
}

// CreateDocument inserts a new document-bodied file. The body row and
// the entity row commit together.
func (t *treeMutator) CreateDocument(ctx context.Context, caller models.Caller, req *services.CreateDocumentRequest) (*models.Entity, error) {
	if err := validation.Validate(req.Title, titleRules...); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	parent, err := t.resolveParent(ctx, caller, req.ParentID)
	if err != nil {
		return nil, err
	}

	docMime := "frappe_doc"
	title, err := t.freeTitle(ctx, parent.ID, req.Title, false, &docMime)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &models.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entity := &models.Entity{
		ID:            uuid.NewString(),
		Title:         title,
		ParentID:      &parent.ID,
		Owner:         caller.UserID,
		IsActive:      true,
		MimeType:      &docMime,
		DocumentID:    &doc.ID,
		AllowComments: true,
		AllowDownload: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = t.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := t.docs.Create(ctx, doc); err != nil {
			return err
		}
		if err := t.entities.Create(ctx, entity); err != nil {
			return err
		}
		return t.inheritFromParent(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	t.logActivity(ctx, caller, entity.ID, "create",
		fmt.Sprintf("%s created document %s", caller.UserID, title), "", "")

	return entity, nil
}

// resolveParent loads the creation target: the given parent or the
// caller's home container. It must be a folder the caller can write.
func (t *treeMutator) resolveParent(ctx context.Context, caller models.Caller, parentID *string) (*models.Entity, error) {
	if caller.Guest {
		return nil, fmt.Errorf("guest create: %w", domain.ErrPermissionDenied)
	}

	if parentID == nil || *parentID == "" {
		return t.home.GetOrCreate(ctx, caller.UserID)
	}

	parent, err := t.entities.GetByID(ctx, *parentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsGroup {
		return nil, fmt.Errorf("create under %s: %w", parent.ID, domain.ErrNotAFolder)
	}

	ok, err := t.access.CanWrite(ctx, parent.ID, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("create under %s: %w", parent.ID, domain.ErrPermissionDenied)
	}
	return parent, nil
}

// freeTitle resolves the requested title against active siblings of
// the same kind and mime type, appending " (n)" before the extension
// when taken.
func (t *treeMutator) freeTitle(ctx context.Context, parentID, title string, isGroup bool, mimeType *string) (string, error) {
	key := repositories.SiblingKey{ParentID: parentID, IsGroup: isGroup, MimeType: mimeType}
	titles, err := t.entities.SiblingTitles(ctx, key)
	if err != nil {
		return "", err
	}
	return suggestTitle(title, titles), nil
}

// insertWithInheritance commits the entity row together with the
// permission records inherited from its parent.
func (t *treeMutator) insertWithInheritance(ctx context.Context, entity *models.Entity) error {
	return t.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := t.entities.Create(ctx, entity); err != nil {
			return err
		}
		return t.inheritFromParent(ctx, entity)
	})
}

// inheritFromParent copies the parent's permission records onto the
// entity. When the parent belongs to someone else the parent's owner
// additionally gets a full grant, so an item placed in a shared folder
// stays manageable by the folder's owner. Inherited records grant
// comment wherever the source grants read.
func (t *treeMutator) inheritFromParent(ctx context.Context, entity *models.Entity) error {
	if entity.ParentID == nil {
		return nil
	}

	parent, err := t.entities.GetByID(ctx, *entity.ParentID)
	if err != nil {
		return err
	}

	if parent.Owner != entity.Owner {
		if _, err := mergeGrant(ctx, t.perms, entity.ID, parent.Owner, models.Full()); err != nil {
			return err
		}
	}

	records, err := t.perms.ListForEntity(ctx, parent.ID)
	if err != nil {
		return err
	}
	for _, record := range records {
		update := models.Flags(record.Capabilities)
		update.Comment = models.Bool(record.Read)
		if _, err := mergeGrant(ctx, t.perms, entity.ID, record.Grantee, update); err != nil {
			return err
		}
	}
	return nil
}
