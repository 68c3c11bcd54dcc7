package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewarden/gatewarden/internal/platform/db"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users with their role references. Role names are
// resolved for roles that still exist; stale role ids stay visible without a
// name.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username, email, created_at, updated_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var found []User
	index := make(map[int64]int)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		index[user.ID] = len(found)
		found = append(found, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roleRows, err := r.pool.Query(ctx,
		`SELECT ur.user_id, ur.role_id, r.name
		 FROM user_roles ur LEFT JOIN roles r ON r.id = ur.role_id
		 ORDER BY ur.role_id`)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var userID, roleID int64
		var name *string
		if err := roleRows.Scan(&userID, &roleID, &name); err != nil {
			return nil, err
		}
		i, ok := index[userID]
		if !ok {
			continue
		}
		found[i].RoleIDs = append(found[i].RoleIDs, roleID)
		if name != nil {
			found[i].RoleNames = append(found[i].RoleNames, *name)
		}
	}
	return found, roleRows.Err()
}

// GetUser fetches a user by id with role references.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, username, email, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ur.role_id, r.name
		 FROM user_roles ur LEFT JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = $1 ORDER BY ur.role_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var roleID int64
		var name *string
		if err := rows.Scan(&roleID, &name); err != nil {
			return nil, err
		}
		user.RoleIDs = append(user.RoleIDs, roleID)
		if name != nil {
			user.RoleNames = append(user.RoleNames, *name)
		}
	}
	return &user, rows.Err()
}

// CreateUser inserts a user with an optional initial role set.
func (r *Repository) CreateUser(ctx context.Context, username, email, passwordHash string, roleIDs []int64) (*User, error) {
	var user User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)
			 RETURNING id, username, email, created_at, updated_at`,
			username, email, passwordHash,
		).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return shared.ErrDuplicate
			}
			return err
		}
		return replaceRoles(ctx, tx, user.ID, roleIDs, false)
	})
	if err != nil {
		return nil, err
	}
	user.RoleIDs = dedupe(roleIDs)
	return &user, nil
}

// UpdateUser updates identity fields and replaces the role set.
func (r *Repository) UpdateUser(ctx context.Context, id int64, username, email string, roleIDs []int64) (*User, error) {
	var user User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`UPDATE users SET username = $2, email = $3, updated_at = NOW() WHERE id = $1
			 RETURNING id, username, email, created_at, updated_at`,
			id, username, email,
		).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			if isUniqueViolation(err) {
				return shared.ErrDuplicate
			}
			return err
		}
		return replaceRoles(ctx, tx, id, roleIDs, true)
	})
	if err != nil {
		return nil, err
	}
	user.RoleIDs = dedupe(roleIDs)
	return &user, nil
}

// ReplaceRoles swaps a user's role set.
func (r *Repository) ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) (*User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		return replaceRoles(ctx, tx, id, roleIDs, true)
	})
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, id)
}

// DeleteUser removes a user and its role references.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func replaceRoles(ctx context.Context, tx pgx.Tx, userID int64, roleIDs []int64, clear bool) error {
	if clear {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
	}
	for _, roleID := range dedupe(roleIDs) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, roleID,
		); err != nil {
			return err
		}
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
