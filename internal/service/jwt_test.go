package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	tok, err := GenerateJWT(42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	id, err := ParseJWT(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user 42, got %d", id)
	}
}

func TestJWTRejectsForeignSecret(t *testing.T) {
	InitJWT("one")
	tok, err := GenerateJWT(7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	InitJWT("two")
	if _, err := ParseJWT(tok); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestJWTRejectsExpired(t *testing.T) {
	InitJWT("test-secret")
	claims := jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT(tok); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
