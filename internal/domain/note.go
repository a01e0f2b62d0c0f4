package domain

import (
	"fmt"
	"strings"
	"time"
)

// PrivacyLevel controls who may read a note.
type PrivacyLevel string

const (
	PrivacyPrivate    PrivacyLevel = "private"
	PrivacySomePeople PrivacyLevel = "some_people"
	PrivacyEveryone   PrivacyLevel = "everyone"
)

// ParsePrivacyLevel validates a wire value.
func ParsePrivacyLevel(value string) (PrivacyLevel, error) {
	switch PrivacyLevel(value) {
	case PrivacyPrivate, PrivacySomePeople, PrivacyEveryone:
		return PrivacyLevel(value), nil
	}
	return "", fmt.Errorf("%w: unknown privacy level %q", ErrValidation, value)
}

// NoteType distinguishes how note content is rendered.
type NoteType string

const (
	NoteTypeText NoteType = "text"
	NoteTypeCode NoteType = "code"
	NoteTypeRich NoteType = "rich"
)

// ParseNoteType validates a wire value.
func ParseNoteType(value string) (NoteType, error) {
	switch NoteType(value) {
	case NoteTypeText, NoteTypeCode, NoteTypeRich:
		return NoteType(value), nil
	}
	return "", fmt.Errorf("%w: unknown note type %q", ErrValidation, value)
}

// EditingPermission gates non-owner mutation of a visible note.
type EditingPermission string

const (
	EditingCreatorOnly   EditingPermission = "creator_only"
	EditingCollaborative EditingPermission = "collaborative"
)

// ParseEditingPermission validates a wire value.
func ParseEditingPermission(value string) (EditingPermission, error) {
	switch EditingPermission(value) {
	case EditingCreatorOnly, EditingCollaborative:
		return EditingPermission(value), nil
	}
	return "", fmt.Errorf("%w: unknown editing permission %q", ErrValidation, value)
}

// Read-time defaults for notes persisted without explicit values.
const (
	DefaultColor     = "#FFFF88"
	DefaultPositionX = 50
	DefaultPositionY = 50
)

// Note is a positioned, colored note on the board.
//
// SharedWith is a raw comma-separated username list; it only carries
// meaning when Privacy is some_people. HasImages is true iff ImagePaths
// is non-empty.
type Note struct {
	ID         string
	Title      string
	Tag        string
	Content    string
	OwnerID    string
	PositionX  *int
	PositionY  *int
	Color      string
	Type       NoteType
	Privacy    PrivacyLevel
	SharedWith string
	HasImages  bool
	ImagePaths []string
	Editing    EditingPermission
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SharedWithList returns the normalized share list: comma-split,
// whitespace-trimmed, empty tokens dropped. Order is preserved.
func (n Note) SharedWithList() []string {
	if strings.TrimSpace(n.SharedWith) == "" {
		return nil
	}
	parts := strings.Split(n.SharedWith, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if token := strings.TrimSpace(p); token != "" {
			list = append(list, token)
		}
	}
	return list
}

// VisibleTo reports whether the given account may read the note:
// ownership, privacy everyone, or exact membership in the share list.
func (n Note) VisibleTo(userID, username string) bool {
	if n.OwnerID == userID {
		return true
	}
	switch n.Privacy {
	case PrivacyEveryone:
		return true
	case PrivacySomePeople:
		for _, shared := range n.SharedWithList() {
			if shared == username {
				return true
			}
		}
	}
	return false
}

// EditableBy reports whether the given account may mutate the note: the
// owner always, any reader when editing is collaborative.
func (n Note) EditableBy(userID, username string) bool {
	if n.OwnerID == userID {
		return true
	}
	return n.Editing == EditingCollaborative && n.VisibleTo(userID, username)
}

// MatchesSearch reports whether term is a case-insensitive substring of
// title, tag, or content. A blank term matches everything.
func (n Note) MatchesSearch(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(n.Title), term) ||
		strings.Contains(strings.ToLower(n.Tag), term) ||
		strings.Contains(strings.ToLower(n.Content), term)
}

// WithDefaults fills read-time defaults for position and color without
// mutating the receiver. Applying it twice yields the same note.
func (n Note) WithDefaults() Note {
	if n.PositionX == nil {
		x := DefaultPositionX
		n.PositionX = &x
	}
	if n.PositionY == nil {
		y := DefaultPositionY
		n.PositionY = &y
	}
	if strings.TrimSpace(n.Color) == "" {
		n.Color = DefaultColor
	}
	return n
}
