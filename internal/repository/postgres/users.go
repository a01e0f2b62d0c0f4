package postgres

import (
	"context"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
)

const userColumns = `id, username, email, password, display_name, biography, avatar_path,
	is_admin, is_banned, email_verified,
	verification_token, verification_token_expiry,
	password_reset_token, password_reset_expiry,
	created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.DisplayName, &u.Biography, &u.AvatarPath,
		&u.IsAdmin, &u.IsBanned, &u.EmailVerified,
		&u.VerificationToken, &u.VerificationTokenExpiry,
		&u.PasswordResetToken, &u.PasswordResetExpiry,
		&u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, mapReadError(err)
	}
	return &u, nil
}

// CreateUser inserts an account.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, username, email, password, display_name, biography, avatar_path,
		is_admin, is_banned, email_verified,
		verification_token, verification_token_expiry,
		password_reset_token, password_reset_expiry,
		created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.Password,
		user.DisplayName, user.Biography, user.AvatarPath,
		user.IsAdmin, user.IsBanned, user.EmailVerified,
		user.VerificationToken, user.VerificationTokenExpiry,
		user.PasswordResetToken, user.PasswordResetExpiry,
		user.CreatedAt, user.LastLogin)
	return mapWriteError(err)
}

// UpdateUser persists mutable account fields.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	const query = `UPDATE users SET username = $2, email = $3, password = $4,
		display_name = $5, biography = $6, avatar_path = $7,
		is_admin = $8, is_banned = $9, email_verified = $10,
		verification_token = $11, verification_token_expiry = $12,
		password_reset_token = $13, password_reset_expiry = $14,
		last_login = $15
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.Password,
		user.DisplayName, user.Biography, user.AvatarPath,
		user.IsAdmin, user.IsBanned, user.EmailVerified,
		user.VerificationToken, user.VerificationTokenExpiry,
		user.PasswordResetToken, user.PasswordResetExpiry,
		user.LastLogin)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetUserByID retrieves an account by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByUsername retrieves an account by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// GetUserByEmail retrieves an account by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByVerificationToken retrieves an account holding the token.
func (r *Repository) GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1`
	return scanUser(r.pool.QueryRow(ctx, query, token))
}

// GetUserByResetToken retrieves an account holding the reset token.
func (r *Repository) GetUserByResetToken(ctx context.Context, token string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE password_reset_token = $1`
	return scanUser(r.pool.QueryRow(ctx, query, token))
}

// UsernameExists reports whether a username is taken.
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// EmailExists reports whether an email is taken.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListUsers returns all accounts ordered by creation time.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	return r.listUsers(ctx, query)
}

// ListAdmins returns accounts with admin privileges.
func (r *Repository) ListAdmins(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE is_admin ORDER BY created_at`
	return r.listUsers(ctx, query)
}

func (r *Repository) listUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
