package domain

import "time"

// BannedEmail blocks future registration with an email address. It
// exists independently of any account: created on account ban or by an
// admin directly, removed on unban.
type BannedEmail struct {
	Email    string
	Reason   string
	BannedAt time.Time
	BannedBy *string // acting admin account id, when known
}
