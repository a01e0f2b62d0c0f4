package repository

import (
	"context"

	"github.com/PythonTilk/Notes/internal/domain"
)

// UserRepository persists accounts. Username and email uniqueness is
// enforced at the storage layer; violations surface as DuplicateError.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListAdmins(ctx context.Context) ([]domain.User, error)
}

// NoteRepository persists notes.
type NoteRepository interface {
	CreateNote(ctx context.Context, note *domain.Note) error
	UpdateNote(ctx context.Context, note *domain.Note) error
	DeleteNote(ctx context.Context, id string) error
	GetNoteByID(ctx context.Context, id string) (*domain.Note, error)
	ListNotesByOwner(ctx context.Context, ownerID string) ([]domain.Note, error)
	// ListVisibleNotes returns the union of notes owned by the user,
	// notes shared with everyone, and some_people notes whose share
	// list contains the username. Each note appears exactly once.
	ListVisibleNotes(ctx context.Context, userID, username string) ([]domain.Note, error)
}

// BannedEmailRepository persists the ban registry.
type BannedEmailRepository interface {
	CreateBannedEmail(ctx context.Context, banned *domain.BannedEmail) error
	DeleteBannedEmail(ctx context.Context, email string) error
	GetBannedEmail(ctx context.Context, email string) (*domain.BannedEmail, error)
	BannedEmailExists(ctx context.Context, email string) (bool, error)
	ListBannedEmails(ctx context.Context) ([]domain.BannedEmail, error)
}
