package crypto

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme identifies how a stored credential is encoded.
type Scheme int

const (
	// SchemePlaintext marks a legacy credential stored as the raw password.
	// Read-only for backward compatibility; never produced by Encode.
	SchemePlaintext Scheme = iota
	// SchemeBcrypt marks a bcrypt-hashed credential.
	SchemeBcrypt
)

// bcrypt hashes carry a "$2a$"/"$2b$"/"$2y$" version prefix.
const bcryptMarker = "$2"

// Credential is a stored secret tagged with its encoding.
type Credential struct {
	Scheme Scheme
	Value  string
}

// ParseCredential classifies a stored credential string.
func ParseCredential(stored string) Credential {
	if strings.HasPrefix(stored, bcryptMarker) {
		return Credential{Scheme: SchemeBcrypt, Value: stored}
	}
	return Credential{Scheme: SchemePlaintext, Value: stored}
}

// Matches reports whether plain corresponds to the credential. Only the
// encoding matching the tag is tried, never both.
func (c Credential) Matches(plain string) bool {
	switch c.Scheme {
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(c.Value), []byte(plain)) == nil
	default:
		return c.Value == plain
	}
}

// Verify checks plain against a stored credential string.
func Verify(plain, stored string) bool {
	return ParseCredential(stored).Matches(plain)
}

// Encode hashes a password for storage. Always produces the bcrypt
// encoding; plaintext credentials are only ever read, never written.
func Encode(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
