package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
)

const permissionColumns = `id, entity_id, grantee, read, comment, share, write, created_at, updated_at`

// PostgresPermissionRepository implements the PermissionRepository interface
type PostgresPermissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(config *RepositoryConfig) repositories.PermissionRepository {
	return &PostgresPermissionRepository{pool: config.Pool}
}

// Get returns the record for (entityID, grantee), or nil when absent.
func (r *PostgresPermissionRepository) Get(ctx context.Context, entityID, grantee string) (*models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE entity_id = $1 AND grantee = $2`

	perm, err := scanPermission(GetExecutor(ctx, r.pool).QueryRow(ctx, query, entityID, grantee))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil // absence is not an error
		}
		return nil, fmt.Errorf("get permission: %w", err)
	}

	return perm, nil
}

// Upsert inserts or replaces the record for (entityID, grantee).
func (r *PostgresPermissionRepository) Upsert(ctx context.Context, perm *models.Permission) error {
	query := `
		INSERT INTO permissions (` + permissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (entity_id, grantee) DO UPDATE
		SET read = EXCLUDED.read, comment = EXCLUDED.comment,
			share = EXCLUDED.share, write = EXCLUDED.write,
			updated_at = EXCLUDED.updated_at
	`

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		perm.ID,
		perm.EntityID,
		perm.Grantee,
		perm.Read,
		perm.Comment,
		perm.Share,
		perm.Write,
		perm.CreatedAt,
		perm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}

	return nil
}

// Delete removes the record for (entityID, grantee). Idempotent.
func (r *PostgresPermissionRepository) Delete(ctx context.Context, entityID, grantee string) error {
	query := `DELETE FROM permissions WHERE entity_id = $1 AND grantee = $2`

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, entityID, grantee); err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	return nil
}

// DeleteForEntity removes every record for an entity.
func (r *PostgresPermissionRepository) DeleteForEntity(ctx context.Context, entityID string) error {
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, `DELETE FROM permissions WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("delete permissions for entity: %w", err)
	}

	return nil
}

// ListForEntity lists all records on an entity.
func (r *PostgresPermissionRepository) ListForEntity(ctx context.Context, entityID string) ([]models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE entity_id = $1 ORDER BY created_at ASC`

	return r.queryPermissions(ctx, query, entityID)
}

// ListForGrantee lists all records held by a grantee.
func (r *PostgresPermissionRepository) ListForGrantee(ctx context.Context, grantee string) ([]models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE grantee = $1 ORDER BY created_at ASC`

	return r.queryPermissions(ctx, query, grantee)
}

func (r *PostgresPermissionRepository) queryPermissions(ctx context.Context, query string, args ...interface{}) ([]models.Permission, error) {
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, *perm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return perms, nil
}

func scanPermission(row pgx.Row) (*models.Permission, error) {
	var perm models.Permission
	err := row.Scan(
		&perm.ID,
		&perm.EntityID,
		&perm.Grantee,
		&perm.Read,
		&perm.Comment,
		&perm.Share,
		&perm.Write,
		&perm.CreatedAt,
		&perm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &perm, nil
}
