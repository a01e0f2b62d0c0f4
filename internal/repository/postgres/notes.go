package postgres

import (
	"context"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
)

const noteColumns = `id, title, tag, content, owner_id, position_x, position_y, color,
	note_type, privacy_level, shared_with, has_images, image_paths, editing_permission,
	created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (*domain.Note, error) {
	var n domain.Note
	err := row.Scan(&n.ID, &n.Title, &n.Tag, &n.Content, &n.OwnerID, &n.PositionX, &n.PositionY, &n.Color,
		&n.Type, &n.Privacy, &n.SharedWith, &n.HasImages, &n.ImagePaths, &n.Editing,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, mapReadError(err)
	}
	return &n, nil
}

// CreateNote inserts a note.
func (r *Repository) CreateNote(ctx context.Context, note *domain.Note) error {
	const query = `INSERT INTO notes (id, title, tag, content, owner_id, position_x, position_y, color,
		note_type, privacy_level, shared_with, has_images, image_paths, editing_permission,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.pool.Exec(ctx, query, note.ID, note.Title, note.Tag, note.Content, note.OwnerID,
		note.PositionX, note.PositionY, note.Color,
		note.Type, note.Privacy, note.SharedWith, note.HasImages, note.ImagePaths, note.Editing,
		note.CreatedAt, note.UpdatedAt)
	return mapWriteError(err)
}

// UpdateNote persists mutable note fields.
func (r *Repository) UpdateNote(ctx context.Context, note *domain.Note) error {
	const query = `UPDATE notes SET title = $2, tag = $3, content = $4,
		position_x = $5, position_y = $6, color = $7,
		note_type = $8, privacy_level = $9, shared_with = $10,
		has_images = $11, image_paths = $12, editing_permission = $13,
		updated_at = $14
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, note.ID, note.Title, note.Tag, note.Content,
		note.PositionX, note.PositionY, note.Color,
		note.Type, note.Privacy, note.SharedWith,
		note.HasImages, note.ImagePaths, note.Editing,
		note.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteNote removes a note by identifier.
func (r *Repository) DeleteNote(ctx context.Context, id string) error {
	const query = `DELETE FROM notes WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetNoteByID fetches a note by identifier.
func (r *Repository) GetNoteByID(ctx context.Context, id string) (*domain.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	return scanNote(r.pool.QueryRow(ctx, query, id))
}

// ListNotesByOwner returns notes owned by the account.
func (r *Repository) ListNotesByOwner(ctx context.Context, ownerID string) ([]domain.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes WHERE owner_id = $1 ORDER BY created_at`
	return r.listNotes(ctx, query, ownerID)
}

// ListVisibleNotes pushes the three-way visibility union to the database:
// notes the user owns, notes shared with everyone, and some_people notes
// whose normalized share list contains the username. A single table scan
// yields each note at most once.
func (r *Repository) ListVisibleNotes(ctx context.Context, userID, username string) ([]domain.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes
		WHERE owner_id = $1
		   OR privacy_level = 'everyone'
		   OR (privacy_level = 'some_people' AND shared_with IS NOT NULL
		       AND $2 = ANY(string_to_array(replace(shared_with, ' ', ''), ',')))
		ORDER BY created_at`
	return r.listNotes(ctx, query, userID, username)
}

func (r *Repository) listNotes(ctx context.Context, query string, args ...any) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}
