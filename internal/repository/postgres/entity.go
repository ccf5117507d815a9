package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
)

const entityColumns = `id, title, parent_id, is_group, owner, is_active, mime_type,
	file_size, file_ext, color, allow_comments, allow_download,
	document_id, storage_key, created_at, updated_at`

// PostgresEntityRepository implements the EntityRepository interface
type PostgresEntityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(config *RepositoryConfig) repositories.EntityRepository {
	return &PostgresEntityRepository{pool: config.Pool}
}

// Create inserts a new entity row.
func (r *PostgresEntityRepository) Create(ctx context.Context, entity *models.Entity) error {
	query := `
		INSERT INTO entities (` + entityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		entity.ID,
		entity.Title,
		entity.ParentID,
		entity.IsGroup,
		entity.Owner,
		entity.IsActive,
		entity.MimeType,
		entity.FileSize,
		entity.FileExt,
		entity.Color,
		entity.AllowComments,
		entity.AllowDownload,
		entity.DocumentID,
		entity.StorageKey,
		entity.CreatedAt,
		entity.UpdatedAt,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("entity %q: %w", entity.Title, domain.ErrNameConflict)
		}
		return fmt.Errorf("create entity: %w", err)
	}

	return nil
}

// GetByID retrieves an entity by ID
func (r *PostgresEntityRepository) GetByID(ctx context.Context, id string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1`

	entity, err := scanEntity(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("entity %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}

	return entity, nil
}

// Update persists every mutable column of an entity row.
func (r *PostgresEntityRepository) Update(ctx context.Context, entity *models.Entity) error {
	query := `
		UPDATE entities
		SET title = $1, parent_id = $2, is_active = $3, mime_type = $4,
			file_size = $5, file_ext = $6, color = $7, allow_comments = $8,
			allow_download = $9, document_id = $10, storage_key = $11,
			updated_at = $12
		WHERE id = $13
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		entity.Title,
		entity.ParentID,
		entity.IsActive,
		entity.MimeType,
		entity.FileSize,
		entity.FileExt,
		entity.Color,
		entity.AllowComments,
		entity.AllowDownload,
		entity.DocumentID,
		entity.StorageKey,
		entity.UpdatedAt,
		entity.ID,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("entity %q: %w", entity.Title, domain.ErrNameConflict)
		}
		return fmt.Errorf("update entity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("entity %s: %w", entity.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the entity row only.
func (r *PostgresEntityRepository) Delete(ctx context.Context, id string) error {
	result, err := GetExecutor(ctx, r.pool).Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("entity %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetActive flips the soft-delete flag.
func (r *PostgresEntityRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE entities SET is_active = $1, updated_at = now() WHERE id = $2`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set entity active: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("entity %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ChildIDs lists ids of all direct children in creation order.
func (r *PostgresEntityRepository) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	query := `SELECT id FROM entities WHERE parent_id = $1 ORDER BY created_at ASC`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate child ids: %w", err)
	}

	return ids, nil
}

// ListChildren lists all direct children.
func (r *PostgresEntityRepository) ListChildren(ctx context.Context, parentID string) ([]models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE parent_id = $1 ORDER BY created_at ASC`

	return r.queryEntities(ctx, query, parentID)
}

// Ancestors returns the strict ancestor chain, nearest parent first,
// via a recursive CTE.
func (r *PostgresEntityRepository) Ancestors(ctx context.Context, id string) ([]models.Entity, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT e.*, 1 AS depth
			FROM entities e
			WHERE e.id = (SELECT parent_id FROM entities WHERE id = $1)
			UNION ALL
			SELECT p.*, c.depth + 1
			FROM entities p
			JOIN chain c ON p.id = c.parent_id
		)
		SELECT ` + entityColumns + ` FROM chain ORDER BY depth ASC
	`

	return r.queryEntities(ctx, query, id)
}

// FindSibling returns the active sibling holding the title, or nil.
func (r *PostgresEntityRepository) FindSibling(ctx context.Context, key repositories.SiblingKey, title string) (*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE parent_id = $1 AND title = $2 AND is_group = $3
			AND mime_type IS NOT DISTINCT FROM $4 AND is_active
	`

	entity, err := scanEntity(GetExecutor(ctx, r.pool).QueryRow(ctx, query, key.ParentID, title, key.IsGroup, key.MimeType))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil // title is free, not an error
		}
		return nil, fmt.Errorf("find sibling: %w", err)
	}

	return entity, nil
}

// SiblingTitles lists titles of all active siblings in the key's scope.
func (r *PostgresEntityRepository) SiblingTitles(ctx context.Context, key repositories.SiblingKey) ([]string, error) {
	query := `
		SELECT title FROM entities
		WHERE parent_id = $1 AND is_group = $2
			AND mime_type IS NOT DISTINCT FROM $3 AND is_active
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, key.ParentID, key.IsGroup, key.MimeType)
	if err != nil {
		return nil, fmt.Errorf("list sibling titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan sibling title: %w", err)
		}
		titles = append(titles, title)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sibling titles: %w", err)
	}

	return titles, nil
}

// ListOwned lists all active entities owned by a user.
func (r *PostgresEntityRepository) ListOwned(ctx context.Context, owner string) ([]models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE owner = $1 AND is_active ORDER BY created_at ASC`

	return r.queryEntities(ctx, query, owner)
}

// ListByIDs loads entities for a set of ids; missing ids are skipped.
func (r *PostgresEntityRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = ANY($1) ORDER BY created_at ASC`

	return r.queryEntities(ctx, query, ids)
}

// GetRoot returns the home container owned by a user.
func (r *PostgresEntityRepository) GetRoot(ctx context.Context, owner string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE owner = $1 AND parent_id IS NULL AND is_group`

	entity, err := scanEntity(GetExecutor(ctx, r.pool).QueryRow(ctx, query, owner))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("home of %s: %w", owner, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get home: %w", err)
	}

	return entity, nil
}

func (r *PostgresEntityRepository) queryEntities(ctx context.Context, query string, args ...interface{}) ([]models.Entity, error) {
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, *entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}

	return entities, nil
}

func scanEntity(row pgx.Row) (*models.Entity, error) {
	var entity models.Entity
	err := row.Scan(
		&entity.ID,
		&entity.Title,
		&entity.ParentID,
		&entity.IsGroup,
		&entity.Owner,
		&entity.IsActive,
		&entity.MimeType,
		&entity.FileSize,
		&entity.FileExt,
		&entity.Color,
		&entity.AllowComments,
		&entity.AllowDownload,
		&entity.DocumentID,
		&entity.StorageKey,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
