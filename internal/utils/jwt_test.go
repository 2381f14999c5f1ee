package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT(42, "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("UserID=%d want 42", claims.UserID)
	}
	// Expiry rides roughly TokenLifetime out.
	until := time.Until(claims.ExpiresAt.Time)
	if until < TokenLifetime-time.Minute || until > TokenLifetime+time.Minute {
		t.Fatalf("expiry %v not near %v", until, TokenLifetime)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT(42, "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, "other"); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestParseJWTRejectsExpiredToken(t *testing.T) {
	// Build an already-expired token by hand.
	claims := Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expired token was accepted")
	}
}
