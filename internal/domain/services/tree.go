package services

import (
	"context"
	"io"

	"cumulus/internal/domain/models"
)

// TreeMutator implements the tree mutations: create, rename, move,
// copy, trash/restore and delete. Every mutation keeps the permission
// store consistent with the resulting tree shape.
type TreeMutator interface {
	// CreateFolder inserts a new folder under the parent (caller's home
	// when nil), resolving title collisions and inheriting the parent's
	// permissions.
	CreateFolder(ctx context.Context, caller models.Caller, req *CreateFolderRequest) (*models.Entity, error)

	// CreateFile inserts a new byte-backed file; content is written to
	// the content store and removed again if the insert fails.
	CreateFile(ctx context.Context, caller models.Caller, req *CreateFileRequest) (*models.Entity, error)

	// CreateDocument inserts a new document-bodied file.
	CreateDocument(ctx context.Context, caller models.Caller, req *CreateDocumentRequest) (*models.Entity, error)

	// Rename changes the title. A collision with an active sibling of
	// the same kind and mime type fails with a NameConflictError
	// carrying a suggested alternate title.
	Rename(ctx context.Context, caller models.Caller, entityID, newTitle string) (*models.Entity, error)

	// Move reparents the entity, renaming on destination collision and
	// re-applying permission inheritance against the new parent.
	// newParentID defaults to the caller's home container.
	Move(ctx context.Context, caller models.Caller, entityID string, newParentID *string) (*models.Entity, error)

	// Copy duplicates the entity (recursively for folders) under the
	// destination, with entirely fresh ids. Returns the new root id.
	Copy(ctx context.Context, caller models.Caller, entityID string, newParentID *string) (string, error)

	// Trash soft-deletes the entity (flag flip; read paths skip it).
	Trash(ctx context.Context, caller models.Caller, entityID string) error

	// Restore undoes a Trash.
	Restore(ctx context.Context, caller models.Caller, entityID string) error

	// Delete hard-deletes the entity and its subtree: dependent records
	// first, children recursively with a per-child write check, then
	// the rows, then backing storage with bounded retry.
	Delete(ctx context.Context, caller models.Caller, entityID string) error

	// ChangeColor sets a folder's display color.
	ChangeColor(ctx context.Context, caller models.Caller, entityID, color string) error

	// ToggleAllowComments flips the comment flag, recursively for folders.
	ToggleAllowComments(ctx context.Context, caller models.Caller, entityID string, allow bool) error

	// ToggleAllowDownload flips the download flag, recursively for folders.
	ToggleAllowDownload(ctx context.Context, caller models.Caller, entityID string, allow bool) error
}

// CreateFolderRequest creates a folder entity.
type CreateFolderRequest struct {
	ParentID *string `json:"parent_id,omitempty"` // nil = caller's home
	Title    string  `json:"title"`
	Color    *string `json:"color,omitempty"`
}

// CreateFileRequest creates a byte-backed file entity.
type CreateFileRequest struct {
	ParentID *string   `json:"-"`
	Title    string    `json:"-"`
	MimeType string    `json:"-"`
	Content  io.Reader `json:"-"`
}

// CreateDocumentRequest creates a document-bodied file entity.
type CreateDocumentRequest struct {
	ParentID *string `json:"parent_id,omitempty"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
}

// HomeResolver returns (or lazily creates) a user's root container.
// The bootstrap itself is an external concern; the tree core only
// needs the container to exist.
type HomeResolver interface {
	GetOrCreate(ctx context.Context, userID string) (*models.Entity, error)
}
