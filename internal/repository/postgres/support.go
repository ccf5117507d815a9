package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
)

// PostgresActivityRepository implements the ActivityRepository interface
type PostgresActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(config *RepositoryConfig) repositories.ActivityRepository {
	return &PostgresActivityRepository{pool: config.Pool}
}

// Append inserts an activity log entry.
func (r *PostgresActivityRepository) Append(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (id, entity_id, type, message, actor, old_value, new_value, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		activity.ID, activity.EntityID, activity.Type, activity.Message,
		activity.Actor, activity.OldValue, activity.NewValue, activity.At)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	return nil
}

// ListForEntity lists activity entries for an entity, oldest first.
func (r *PostgresActivityRepository) ListForEntity(ctx context.Context, entityID string) ([]models.Activity, error) {
	query := `
		SELECT id, entity_id, type, message, actor, old_value, new_value, at
		FROM activities WHERE entity_id = $1 ORDER BY at ASC
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		err := rows.Scan(&a.ID, &a.EntityID, &a.Type, &a.Message, &a.Actor, &a.OldValue, &a.NewValue, &a.At)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return activities, nil
}

// DeleteForEntity removes all activity entries for an entity.
func (r *PostgresActivityRepository) DeleteForEntity(ctx context.Context, entityID string) error {
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, `DELETE FROM activities WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("delete activities for entity: %w", err)
	}
	return nil
}

// PostgresFavoriteRepository implements the FavoriteRepository interface
type PostgresFavoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(config *RepositoryConfig) repositories.FavoriteRepository {
	return &PostgresFavoriteRepository{pool: config.Pool}
}

// DeleteForEntity removes all favorites referencing an entity.
func (r *PostgresFavoriteRepository) DeleteForEntity(ctx context.Context, entityID string) error {
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, `DELETE FROM favorites WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("delete favorites for entity: %w", err)
	}
	return nil
}

// PostgresNotificationRepository implements the NotificationRepository interface
type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(config *RepositoryConfig) repositories.NotificationRepository {
	return &PostgresNotificationRepository{pool: config.Pool}
}

// DeleteForEntity removes all notifications referencing an entity.
func (r *PostgresNotificationRepository) DeleteForEntity(ctx context.Context, entityID string) error {
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, `DELETE FROM notifications WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("delete notifications for entity: %w", err)
	}
	return nil
}
