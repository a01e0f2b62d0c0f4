package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PythonTilk/Notes/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository        = (*Repository)(nil)
	_ repository.NoteRepository        = (*Repository)(nil)
	_ repository.BannedEmailRepository = (*Repository)(nil)
)

const uniqueViolationCode = "23505"

// mapWriteError converts driver errors into repository sentinels.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return &repository.DuplicateError{Constraint: pgErr.ConstraintName}
	}
	return err
}

// mapReadError converts no-row results into ErrNotFound.
func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
