package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", "alice", true, "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" || !claims.IsAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "notes" {
		t.Errorf("issuer = %q, want notes", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "alice", false, "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := Parse(token, "other-secret"); err == nil {
		t.Error("a token signed with a different secret must not parse")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := GenerateToken("user-1", "alice", false, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := Parse(token, "secret"); err == nil {
		t.Error("an expired token must not parse")
	}
}
