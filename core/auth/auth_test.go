package auth

import (
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("qweasd2417")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !VerifyPassword("qweasd2417", hash) {
		t.Fatal("correct password should verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatal("wrong password should not verify")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	Configure("test-secret", time.Hour)

	token, err := GenerateToken(42, "bt1q")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "bt1q" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	Configure("test-secret", time.Hour)

	token, err := GenerateToken(1, "user")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseToken(token + "x"); err == nil {
		t.Fatal("tampered token should not parse")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	Configure("test-secret", time.Hour)
	jwtExpiry = -time.Minute
	defer func() { jwtExpiry = time.Hour }()

	token, err := GenerateToken(1, "user")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseToken(token); err == nil {
		t.Fatal("expired token should not parse")
	}
}
