package httpx

import (
	"time"

	"github.com/PythonTilk/Notes/internal/domain"
)

type userView struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email,omitempty"`
	DisplayName   string     `json:"displayName"`
	Biography     string     `json:"biography,omitempty"`
	AvatarPath    string     `json:"avatarPath,omitempty"`
	IsAdmin       bool       `json:"isAdmin"`
	IsBanned      bool       `json:"isBanned"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
}

func toUserView(u *domain.User) userView {
	return userView{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		DisplayName:   u.DisplayNameOrUsername(),
		Biography:     u.Biography,
		AvatarPath:    u.AvatarPath,
		IsAdmin:       u.IsAdmin,
		IsBanned:      u.IsBanned,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLogin,
	}
}

// profileView omits account state; it is what other users see.
type profileView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Biography   string `json:"biography,omitempty"`
	AvatarPath  string `json:"avatarPath,omitempty"`
}

func toProfileView(u *domain.User) profileView {
	return profileView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayNameOrUsername(),
		Biography:   u.Biography,
		AvatarPath:  u.AvatarPath,
	}
}

type noteView struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Tag        string    `json:"tag,omitempty"`
	Content    string    `json:"content"`
	OwnerID    string    `json:"ownerId"`
	PositionX  int       `json:"positionX"`
	PositionY  int       `json:"positionY"`
	Color      string    `json:"color"`
	Type       string    `json:"noteType"`
	Privacy    string    `json:"privacyLevel"`
	SharedWith []string  `json:"sharedWith,omitempty"`
	HasImages  bool      `json:"hasImages"`
	ImagePaths []string  `json:"imagePaths,omitempty"`
	Editing    string    `json:"editingPermission"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// toNoteView renders a note with read-time defaults applied.
func toNoteView(n domain.Note) noteView {
	n = n.WithDefaults()
	view := noteView{
		ID:         n.ID,
		Title:      n.Title,
		Tag:        n.Tag,
		Content:    n.Content,
		OwnerID:    n.OwnerID,
		PositionX:  *n.PositionX,
		PositionY:  *n.PositionY,
		Color:      n.Color,
		Type:       string(n.Type),
		Privacy:    string(n.Privacy),
		HasImages:  n.HasImages,
		ImagePaths: n.ImagePaths,
		Editing:    string(n.Editing),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
	if n.Privacy == domain.PrivacySomePeople {
		view.SharedWith = n.SharedWithList()
	}
	return view
}

func toNoteViews(notes []domain.Note) []noteView {
	views := make([]noteView, 0, len(notes))
	for _, n := range notes {
		views = append(views, toNoteView(n))
	}
	return views
}

type bannedEmailView struct {
	Email    string    `json:"email"`
	Reason   string    `json:"reason,omitempty"`
	BannedAt time.Time `json:"bannedAt"`
	BannedBy *string   `json:"bannedBy,omitempty"`
}

func toBannedEmailView(b domain.BannedEmail) bannedEmailView {
	return bannedEmailView{Email: b.Email, Reason: b.Reason, BannedAt: b.BannedAt, BannedBy: b.BannedBy}
}
