package models

import (
	"strings"
	"time"
)

// Entity is a node in the drive hierarchy: a folder (IsGroup) or a file.
// Files may reference a rich-text document body (DocumentID) or raw byte
// content in the content store (StorageKey).
type Entity struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	ParentID      *string   `json:"parent_id" db:"parent_id"` // NULL = root (home container)
	IsGroup       bool      `json:"is_group" db:"is_group"`
	Owner         string    `json:"owner" db:"owner"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	MimeType      *string   `json:"mime_type" db:"mime_type"`
	FileSize      int64     `json:"file_size" db:"file_size"`
	FileExt       *string   `json:"file_ext" db:"file_ext"`
	Color         *string   `json:"color" db:"color"` // folders only
	AllowComments bool      `json:"allow_comments" db:"allow_comments"`
	AllowDownload bool      `json:"allow_download" db:"allow_download"`
	DocumentID    *string   `json:"document_id" db:"document_id"`
	StorageKey    *string   `json:"-" db:"storage_key"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether the entity is a root (home) container.
func (e *Entity) IsRoot() bool {
	return e.ParentID == nil
}

// Mime returns the mime type or "" when unset.
func (e *Entity) Mime() string {
	if e.MimeType == nil {
		return ""
	}
	return *e.MimeType
}

// HasDocument reports whether the entity is backed by a document body.
func (e *Entity) HasDocument() bool {
	return e.DocumentID != nil && *e.DocumentID != ""
}

// HasStorage reports whether the entity has byte content in the content store.
func (e *Entity) HasStorage() bool {
	return e.StorageKey != nil && *e.StorageKey != ""
}

// NeedsThumbnail reports whether the entity's content gets a generated
// thumbnail (image and video mime types).
func (e *Entity) NeedsThumbnail() bool {
	mime := e.Mime()
	return strings.HasPrefix(mime, "image") || strings.HasPrefix(mime, "video")
}

// Document is the rich-text body backing a document entity. Content
// storage is opaque to the tree core; it is only created, duplicated on
// copy, and deleted with its entity.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Activity is an append-only log entry for an entity. The sink is
// fire-and-forget; failures never abort the operation that emitted it.
type Activity struct {
	ID       string    `json:"id" db:"id"`
	EntityID string    `json:"entity_id" db:"entity_id"`
	Type     string    `json:"type" db:"type"`
	Message  string    `json:"message" db:"message"`
	Actor    string    `json:"actor" db:"actor"`
	OldValue string    `json:"old_value,omitempty" db:"old_value"`
	NewValue string    `json:"new_value,omitempty" db:"new_value"`
	At       time.Time `json:"at" db:"at"`
}
