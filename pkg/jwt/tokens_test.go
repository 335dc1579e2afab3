package jwt

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func TestGenerateAndParseRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-123", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := Parse(token, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Fatalf("unexpected subject: %q", claims.UserID)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatalf("expected expiry in the future")
	}
}

func TestParseExpiredToken(t *testing.T) {
	token, err := GenerateToken("user-123", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Parse(token, testSecret); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestParseTamperedToken(t *testing.T) {
	token, err := GenerateToken("user-123", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	truncated := token[:len(token)-1]
	if _, err := Parse(truncated, testSecret); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for truncated token, got %v", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-123", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Parse(token, "other-secret"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for wrong secret, got %v", err)
	}
}
