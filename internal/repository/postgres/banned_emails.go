package postgres

import (
	"context"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
)

// CreateBannedEmail inserts a ban registry entry.
func (r *Repository) CreateBannedEmail(ctx context.Context, banned *domain.BannedEmail) error {
	const query = `INSERT INTO banned_emails (email, reason, banned_at, banned_by)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, banned.Email, banned.Reason, banned.BannedAt, banned.BannedBy)
	return mapWriteError(err)
}

// DeleteBannedEmail removes a ban registry entry.
func (r *Repository) DeleteBannedEmail(ctx context.Context, email string) error {
	const query = `DELETE FROM banned_emails WHERE email = $1`
	tag, err := r.pool.Exec(ctx, query, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetBannedEmail fetches a ban registry entry.
func (r *Repository) GetBannedEmail(ctx context.Context, email string) (*domain.BannedEmail, error) {
	const query = `SELECT email, reason, banned_at, banned_by FROM banned_emails WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	var b domain.BannedEmail
	if err := row.Scan(&b.Email, &b.Reason, &b.BannedAt, &b.BannedBy); err != nil {
		return nil, mapReadError(err)
	}
	return &b, nil
}

// BannedEmailExists reports ban registry membership.
func (r *Repository) BannedEmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM banned_emails WHERE email = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListBannedEmails returns all ban registry entries.
func (r *Repository) ListBannedEmails(ctx context.Context) ([]domain.BannedEmail, error) {
	const query = `SELECT email, reason, banned_at, banned_by FROM banned_emails ORDER BY banned_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.BannedEmail, 0)
	for rows.Next() {
		var b domain.BannedEmail
		if err := rows.Scan(&b.Email, &b.Reason, &b.BannedAt, &b.BannedBy); err != nil {
			return nil, err
		}
		entries = append(entries, b)
	}
	return entries, rows.Err()
}
