package domain

import (
	"strings"
	"time"
)

// User represents a board account.
//
// A token field and its expiry are always set or cleared together;
// consuming a token clears both.
type User struct {
	ID          string
	Username    string
	Email       string
	Password    string // stored credential, legacy plaintext or bcrypt
	DisplayName string
	Biography   string
	AvatarPath  string

	IsAdmin       bool
	IsBanned      bool
	EmailVerified bool

	VerificationToken       *string
	VerificationTokenExpiry *time.Time
	PasswordResetToken      *string
	PasswordResetExpiry     *time.Time

	CreatedAt time.Time
	LastLogin *time.Time
}

// DisplayNameOrUsername returns the display name, falling back to the
// username when unset or blank.
func (u User) DisplayNameOrUsername() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.Username
}

// Identity is the opaque session payload established at login.
type Identity struct {
	UserID   string
	Username string
	IsAdmin  bool
}
