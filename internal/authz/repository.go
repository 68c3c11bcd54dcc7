package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// Repository provides PostgreSQL backed reads for the engine. Every call
// hits the database; the engine relies on per-read consistency and nothing
// is cached.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindPermission returns the permission matching route and method exactly.
func (r *Repository) FindPermission(ctx context.Context, route, method string) (*Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, route, method, requires_auth FROM permissions WHERE route = $1 AND method = $2`,
		route, method,
	).Scan(&perm.ID, &perm.Name, &perm.Route, &perm.Method, &perm.RequiresAuth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &perm, nil
}

// PermissionsByIDs returns the permissions that still exist among ids.
func (r *Repository) PermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, route, method, requires_auth FROM permissions WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Route, &perm.Method, &perm.RequiresAuth); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// RolesByIDs returns the roles that still exist among ids together with
// their permission id sets.
func (r *Repository) RolesByIDs(ctx context.Context, ids []int64) ([]Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	index := make(map[int64]int)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		index[role.ID] = len(roles)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}

	permRows, err := r.pool.Query(ctx,
		`SELECT role_id, permission_id FROM role_permissions WHERE role_id = ANY($1) ORDER BY permission_id`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer permRows.Close()
	for permRows.Next() {
		var roleID, permID int64
		if err := permRows.Scan(&roleID, &permID); err != nil {
			return nil, err
		}
		if i, ok := index[roleID]; ok {
			roles[i].PermissionIDs = append(roles[i].PermissionIDs, permID)
		}
	}
	return roles, permRows.Err()
}

// PrincipalByID returns the principal with its role references resolved.
func (r *Repository) PrincipalByID(ctx context.Context, id int64) (*Principal, error) {
	var principal Principal
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, email FROM users WHERE id = $1`,
		id,
	).Scan(&principal.ID, &principal.Username, &principal.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var roleID int64
		if err := rows.Scan(&roleID); err != nil {
			return nil, err
		}
		principal.RoleIDs = append(principal.RoleIDs, roleID)
	}
	return &principal, rows.Err()
}

var _ Store = (*Repository)(nil)
