package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// Repository provides PostgreSQL backed persistence. The (route, method)
// pair carries a unique constraint, so a duplicate registration fails at
// write time instead of leaving the lookup ambiguous.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const permissionColumns = `id, name, route, method, requires_auth, created_at, updated_at`

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// GetPermission fetches a permission by id.
func (r *Repository) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	perm, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &perm, nil
}

// CreatePermission inserts a new permission row.
func (r *Repository) CreatePermission(ctx context.Context, name, route, method string, requiresAuth bool) (*Permission, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, route, method, requires_auth) VALUES ($1, $2, $3, $4)
		 RETURNING `+permissionColumns,
		name, route, method, requiresAuth,
	)
	perm, err := scanPermission(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return &perm, nil
}

// UpdatePermission replaces the mutable fields of a permission.
func (r *Repository) UpdatePermission(ctx context.Context, id int64, name, route, method string, requiresAuth bool) (*Permission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE permissions SET name = $2, route = $3, method = $4, requires_auth = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+permissionColumns,
		id, name, route, method, requiresAuth,
	)
	perm, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return &perm, nil
}

// DeletePermission removes a permission by id.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanPermission(row pgx.Row) (Permission, error) {
	var perm Permission
	err := row.Scan(&perm.ID, &perm.Name, &perm.Route, &perm.Method, &perm.RequiresAuth, &perm.CreatedAt, &perm.UpdatedAt)
	return perm, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
