// Package auth_repo stores administrator accounts and refresh tokens.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/domain/auth"
	"rwpay/internal/infrastructure/storage/postgres"
)

const userColumns = `id, email, password_hash, name, role, is_active,
	last_login_at, failed_login_attempts, locked_until, created_at, updated_at, version`

// UserRepo implements auth.UserRepository over admin_users.
type UserRepo struct {
	txm *postgres.TxManager
}

func NewUserRepo(txm *postgres.TxManager) *UserRepo {
	return &UserRepo{txm: txm}
}

func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	_, err := r.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO admin_users (
			id, email, password_hash, name, role, is_active,
			failed_login_attempts, created_at, updated_at, version
		) VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.IsActive,
		user.FailedLoginAttempts, user.CreatedAt, user.UpdatedAt, user.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("admin", "email", user.Email)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getOne(ctx, "id = $1", userID, userID.String())
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "email = lower($1)", email, email)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any, key string) (*auth.User, error) {
	var user auth.User
	err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &user,
		`SELECT `+userColumns+` FROM admin_users WHERE `+where, arg)
	if pgxscan.NotFound(err) {
		return nil, apperror.NewNotFound("admin", key)
	}
	if err != nil {
		return nil, fmt.Errorf("query admin: %w", err)
	}
	return &user, nil
}

// Update writes login bookkeeping and profile fields under optimistic locking.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, `
		UPDATE admin_users SET
			name = $2,
			role = $3,
			is_active = $4,
			last_login_at = $5,
			failed_login_attempts = $6,
			locked_until = $7,
			updated_at = $8,
			version = version + 1
		WHERE id = $1 AND version = $9`,
		user.ID, user.Name, user.Role, user.IsActive, user.LastLoginAt,
		user.FailedLoginAttempts, user.LockedUntil, user.UpdatedAt, user.Version,
	)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("admin", user.ID)
	}
	user.Version++
	return nil
}

func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.txm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin_users WHERE email = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin exists: %w", err)
	}
	return exists, nil
}

var _ auth.UserRepository = (*UserRepo)(nil)
