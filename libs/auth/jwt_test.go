package auth

import (
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	now := time.Now()

	token, expires, err := SignHS256("owner", RoleAdmin, secret, time.Hour, now)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", expires)
	}
	claims, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if claims.Subject != "owner" || claims.Role != RoleAdmin {
		t.Fatalf("claims mismatch: got %+v", claims)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256Expired(t *testing.T) {
	token, _, err := SignHS256("owner", RoleAdmin, "s", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSignRequiresSecret(t *testing.T) {
	if _, _, err := SignHS256("owner", RoleAdmin, "", time.Minute, time.Now()); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(hash, "hunter2"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := CheckPassword(hash, "hunter3"); err == nil {
		t.Fatal("expected mismatch")
	}
}
