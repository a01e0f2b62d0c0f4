package crypto

import (
	"strings"
	"testing"
)

func TestParseCredentialClassifiesByPrefix(t *testing.T) {
	cases := []struct {
		stored string
		scheme Scheme
	}{
		{"$2a$10$N9qo8uLOickgx2ZMRZoMye", SchemeBcrypt},
		{"$2b$12$abcdefghijklmnopqrstuv", SchemeBcrypt},
		{"$2y$10$abcdefghijklmnopqrstuv", SchemeBcrypt},
		{"hunter2", SchemePlaintext},
		{"", SchemePlaintext},
		{"$1$legacy-md5-style", SchemePlaintext},
	}
	for _, tc := range cases {
		if got := ParseCredential(tc.stored).Scheme; got != tc.scheme {
			t.Errorf("ParseCredential(%q).Scheme = %v, want %v", tc.stored, got, tc.scheme)
		}
	}
}

func TestVerifyPlaintextIsExactMatch(t *testing.T) {
	if !Verify("hunter2", "hunter2") {
		t.Error("expected plaintext credential to match itself")
	}
	if Verify("hunter", "hunter2") {
		t.Error("prefix of a plaintext credential must not match")
	}
	if Verify("HUNTER2", "hunter2") {
		t.Error("plaintext comparison must be case sensitive")
	}
}

func TestVerifyBcryptRoundTrip(t *testing.T) {
	stored, err := Encode("correct horse battery staple")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.HasPrefix(stored, "$2") {
		t.Fatalf("Encode produced a non-bcrypt credential: %q", stored)
	}
	if !Verify("correct horse battery staple", stored) {
		t.Error("expected encoded password to verify")
	}
	if Verify("wrong password", stored) {
		t.Error("wrong password must not verify")
	}
}

func TestVerifyNeverCrossesSchemes(t *testing.T) {
	stored, err := Encode("secret")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	// The stored hash itself is not a valid password for the hash.
	if Verify(stored, stored) {
		t.Error("a bcrypt hash must not verify against itself as plaintext")
	}
}
