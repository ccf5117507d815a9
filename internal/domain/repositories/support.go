package repositories

import (
	"context"

	"cumulus/internal/domain/models"
)

// ActivityRepository is the append-only activity log sink. Appends are
// fire-and-forget from the services' point of view; DeleteForEntity is
// part of the hard-delete cascade.
type ActivityRepository interface {
	Append(ctx context.Context, activity *models.Activity) error
	ListForEntity(ctx context.Context, entityID string) ([]models.Activity, error)
	DeleteForEntity(ctx context.Context, entityID string) error
}

// FavoriteRepository tracks per-user favorites. The tree core only
// needs the delete cascade; marking favorites lives at the API layer.
type FavoriteRepository interface {
	DeleteForEntity(ctx context.Context, entityID string) error
}

// NotificationRepository tracks per-user notifications referencing an
// entity; same cascade contract as favorites.
type NotificationRepository interface {
	DeleteForEntity(ctx context.Context, entityID string) error
}
