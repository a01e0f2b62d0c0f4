// Package note implements board note operations and the visibility
// resolution that decides which notes an account may read or edit.
package note

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
)

// Streamer broadcasts board events to feed subscribers.
type Streamer interface {
	Broadcast(feed string, payload []byte)
}

// Service resolves note visibility and applies note mutations.
type Service struct {
	notes  repository.NoteRepository
	logger *slog.Logger
	stream Streamer
}

// New constructs a Service. stream may be nil when no event feed is wired.
func New(notes repository.NoteRepository, stream Streamer, logger *slog.Logger) *Service {
	return &Service{notes: notes, stream: stream, logger: logger}
}

// ListVisible resolves the visible note set for the identity: owned
// notes, notes shared with everyone, and some_people notes listing the
// username. Each note appears exactly once, with read-time defaults
// applied. An empty identity yields an empty result, not an error.
func (s *Service) ListVisible(ctx context.Context, who domain.Identity) ([]domain.Note, error) {
	if who.UserID == "" {
		return []domain.Note{}, nil
	}
	notes, err := s.notes.ListVisibleNotes(ctx, who.UserID, who.Username)
	if err != nil {
		return nil, fmt.Errorf("list visible notes: %w", err)
	}
	for i := range notes {
		notes[i] = notes[i].WithDefaults()
	}
	return notes, nil
}

// Search filters the visible set by a case-insensitive substring match
// over title, tag, and content. A blank term returns the full set.
func (s *Service) Search(ctx context.Context, who domain.Identity, term string) ([]domain.Note, error) {
	visible, err := s.ListVisible(ctx, who)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(term) == "" {
		return visible, nil
	}
	matched := make([]domain.Note, 0, len(visible))
	for _, n := range visible {
		if n.MatchesSearch(term) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

// Get returns a single note if the identity may read it.
func (s *Service) Get(ctx context.Context, who domain.Identity, noteID string) (*domain.Note, error) {
	n, err := s.load(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !n.VisibleTo(who.UserID, who.Username) {
		return nil, domain.ErrForbidden
	}
	filled := n.WithDefaults()
	return &filled, nil
}

// ListPublicByOwner returns an account's notes shared with everyone,
// for profile pages. Readable without any visibility check.
func (s *Service) ListPublicByOwner(ctx context.Context, ownerID string) ([]domain.Note, error) {
	notes, err := s.notes.ListNotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner notes: %w", err)
	}
	public := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		if n.Privacy == domain.PrivacyEveryone {
			public = append(public, n.WithDefaults())
		}
	}
	return public, nil
}

// CreateInput carries note creation fields. Zero enum values fall back
// to text/private/creator_only.
type CreateInput struct {
	Title      string   `json:"title"`
	Tag        string   `json:"tag"`
	Content    string   `json:"content"`
	PositionX  *int     `json:"positionX"`
	PositionY  *int     `json:"positionY"`
	Color      string   `json:"color"`
	Type       string   `json:"noteType"`
	Privacy    string   `json:"privacyLevel"`
	SharedWith string   `json:"sharedWith"`
	Editing    string   `json:"editingPermission"`
	ImagePaths []string `json:"imagePaths"`
}

// Create stores a new note owned by the identity.
func (s *Service) Create(ctx context.Context, who domain.Identity, input CreateInput) (*domain.Note, error) {
	if who.UserID == "" {
		return nil, domain.ErrForbidden
	}
	noteType, privacy, editing, err := parseEnums(input.Type, input.Privacy, input.Editing)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	n := &domain.Note{
		ID:         uuid.NewString(),
		Title:      input.Title,
		Tag:        input.Tag,
		Content:    input.Content,
		OwnerID:    who.UserID,
		PositionX:  input.PositionX,
		PositionY:  input.PositionY,
		Color:      input.Color,
		Type:       noteType,
		Privacy:    privacy,
		SharedWith: input.SharedWith,
		HasImages:  len(input.ImagePaths) > 0,
		ImagePaths: input.ImagePaths,
		Editing:    editing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.notes.CreateNote(ctx, n); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	s.logger.Info("note created", "note_id", n.ID, "owner_id", n.OwnerID, "privacy", n.Privacy)
	s.publish(eventNoteCreated, n)
	filled := n.WithDefaults()
	return &filled, nil
}

// UpdateInput is a typed partial update: nil fields are left untouched,
// set fields are applied verbatim.
type UpdateInput struct {
	Title      *string   `json:"title"`
	Tag        *string   `json:"tag"`
	Content    *string   `json:"content"`
	PositionX  *int      `json:"positionX"`
	PositionY  *int      `json:"positionY"`
	Color      *string   `json:"color"`
	Type       *string   `json:"noteType"`
	Privacy    *string   `json:"privacyLevel"`
	SharedWith *string   `json:"sharedWith"`
	Editing    *string   `json:"editingPermission"`
	ImagePaths *[]string `json:"imagePaths"`
}

// Update applies a partial update if the identity may edit the note:
// the owner always, any reader when editing is collaborative.
func (s *Service) Update(ctx context.Context, who domain.Identity, noteID string, input UpdateInput) (*domain.Note, error) {
	n, err := s.load(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !n.EditableBy(who.UserID, who.Username) {
		return nil, domain.ErrForbidden
	}

	if input.Title != nil {
		n.Title = *input.Title
	}
	if input.Tag != nil {
		n.Tag = *input.Tag
	}
	if input.Content != nil {
		n.Content = *input.Content
	}
	if input.PositionX != nil {
		n.PositionX = input.PositionX
	}
	if input.PositionY != nil {
		n.PositionY = input.PositionY
	}
	if input.Color != nil {
		n.Color = *input.Color
	}
	if input.Type != nil {
		parsed, err := domain.ParseNoteType(*input.Type)
		if err != nil {
			return nil, err
		}
		n.Type = parsed
	}
	if input.Privacy != nil {
		parsed, err := domain.ParsePrivacyLevel(*input.Privacy)
		if err != nil {
			return nil, err
		}
		n.Privacy = parsed
	}
	if input.SharedWith != nil {
		n.SharedWith = *input.SharedWith
	}
	if input.Editing != nil {
		parsed, err := domain.ParseEditingPermission(*input.Editing)
		if err != nil {
			return nil, err
		}
		n.Editing = parsed
	}
	if input.ImagePaths != nil {
		n.ImagePaths = *input.ImagePaths
		n.HasImages = len(n.ImagePaths) > 0
	}
	n.UpdatedAt = time.Now().UTC()

	if err := s.notes.UpdateNote(ctx, n); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	s.publish(eventNoteUpdated, n)
	filled := n.WithDefaults()
	return &filled, nil
}

// Move updates only the board position. Same edit authorization as Update.
func (s *Service) Move(ctx context.Context, who domain.Identity, noteID string, x, y int) (*domain.Note, error) {
	return s.Update(ctx, who, noteID, UpdateInput{PositionX: &x, PositionY: &y})
}

// Delete removes a note. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, who domain.Identity, noteID string) error {
	n, err := s.load(ctx, noteID)
	if err != nil {
		return err
	}
	if n.OwnerID != who.UserID && !who.IsAdmin {
		return domain.ErrForbidden
	}
	if err := s.notes.DeleteNote(ctx, noteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete note: %w", err)
	}
	s.logger.Info("note deleted", "note_id", noteID, "by", who.UserID)
	s.publish(eventNoteDeleted, n)
	return nil
}

// CanEdit reports edit authorization without mutating anything.
func (s *Service) CanEdit(ctx context.Context, who domain.Identity, noteID string) (bool, error) {
	n, err := s.load(ctx, noteID)
	if err != nil {
		return false, err
	}
	return n.EditableBy(who.UserID, who.Username), nil
}

func (s *Service) load(ctx context.Context, noteID string) (*domain.Note, error) {
	n, err := s.notes.GetNoteByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup note: %w", err)
	}
	return n, nil
}

func parseEnums(noteType, privacy, editing string) (domain.NoteType, domain.PrivacyLevel, domain.EditingPermission, error) {
	nt := domain.NoteTypeText
	if noteType != "" {
		parsed, err := domain.ParseNoteType(noteType)
		if err != nil {
			return "", "", "", err
		}
		nt = parsed
	}
	pl := domain.PrivacyPrivate
	if privacy != "" {
		parsed, err := domain.ParsePrivacyLevel(privacy)
		if err != nil {
			return "", "", "", err
		}
		pl = parsed
	}
	ep := domain.EditingCreatorOnly
	if editing != "" {
		parsed, err := domain.ParseEditingPermission(editing)
		if err != nil {
			return "", "", "", err
		}
		ep = parsed
	}
	return nt, pl, ep, nil
}

// Board event types broadcast to websocket feed subscribers.
const (
	eventNoteCreated = "note.created"
	eventNoteUpdated = "note.updated"
	eventNoteDeleted = "note.deleted"
)

type boardEvent struct {
	Type   string `json:"type"`
	NoteID string `json:"noteId"`
	Owner  string `json:"ownerId"`
}

// publish broadcasts a board event to the owner's feed. Best-effort: a
// missing streamer or marshal failure never affects the mutation.
func (s *Service) publish(eventType string, n *domain.Note) {
	if s.stream == nil {
		return
	}
	payload, err := json.Marshal(boardEvent{Type: eventType, NoteID: n.ID, Owner: n.OwnerID})
	if err != nil {
		s.logger.Error("board event marshal failed", "note_id", n.ID, "error", err)
		return
	}
	s.stream.Broadcast(n.OwnerID, payload)
}
