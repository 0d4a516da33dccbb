package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
)

const userColumns = `id, username, name, role, email, phone, password_hash, is_active, created_at`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (username, name, role, email, phone, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.Name,
		user.Role,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	return mapError(err, "user")
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET name = $1, role = $2, email = $3, phone = $4, password_hash = $5, is_active = $6
		WHERE id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Role,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return mapError(err, "user")
	}
	return requireAffected(result, "user")
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "user")
	}
	return requireAffected(result, "user")
}

func (r *userRepository) List(ctx context.Context, filter *model.UserFilter) ([]*model.User, int, error) {
	var w where
	if filter.Role != "" {
		w.add("role = $%d", filter.Role)
	}
	if filter.Search != "" {
		w.add(`(username ILIKE $%d OR name ILIKE $%d OR email ILIKE $%d)`, likePattern(filter.Search))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	limit, args := w.page(filter.PageSize, filter.Offset())
	query := `SELECT ` + userColumns + ` FROM users` + w.clause() + ` ORDER BY name ASC, id ASC` + limit

	users := []*model.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// FirstActiveByRole returns the longest-standing active user with role.
func (r *userRepository) FirstActiveByRole(ctx context.Context, role model.Role) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND is_active ORDER BY id ASC LIMIT 1`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, role); err != nil {
		return nil, mapError(err, string(role))
	}
	return &user, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(result rowsAffecter, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return errors.NotFound(resource, nil)
	}
	return nil
}
