package services

import (
	"context"
	"io"
)

// ContentStore is the byte-level storage collaborator, keyed by a
// storage key derived from the entity id. Writes happen outside the
// transactional boundary; the tree mutator compensates (deletes keys)
// when the transaction that referenced them aborts.
type ContentStore interface {
	// Write stores the content under key and returns the byte count.
	Write(ctx context.Context, key string, content io.Reader) (int64, error)

	// Copy duplicates srcKey's bytes under dstKey.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Open returns the content for reading.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether a key is occupied.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ThumbnailJob identifies content needing a generated thumbnail.
type ThumbnailJob struct {
	EntityID string
	Key      string
	MimeType string
}

// ThumbnailDispatcher enqueues asynchronous thumbnail generation.
// Fire-and-forget: enqueue never blocks the operation that triggered
// it and generation failure never rolls anything back.
type ThumbnailDispatcher interface {
	Enqueue(job ThumbnailJob)

	// DeleteThumbnail removes a generated thumbnail, if any.
	DeleteThumbnail(ctx context.Context, entityID string) error
}
