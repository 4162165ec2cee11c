package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", "ops@example.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ParseClaims(token, "secret")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", claims.UserID)
	}
	if claims.Email != "ops@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _ := GenerateToken("user-1", "", "secret", time.Hour)
	if _, err := ParseClaims(token, "other"); err == nil {
		t.Fatal("token with wrong secret accepted")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, _ := GenerateToken("user-1", "", "secret", -time.Minute)
	if _, err := ParseClaims(token, "secret"); err == nil {
		t.Fatal("expired token accepted")
	}
}
