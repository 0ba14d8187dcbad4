package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256("ops-1", RoleOperator, secret, time.Hour)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	claims, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if claims.Subject != "ops-1" || claims.Role != RoleOperator {
		t.Fatalf("claims mismatch: got %+v", claims)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := SignHS256("ops-1", RoleOperator, "s", -time.Minute)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestSignRequiresSecret(t *testing.T) {
	if _, err := SignHS256("ops-1", RoleOperator, " ", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("BearerToken = %q, %v", tok, ok)
	}
	if tok, ok := BearerToken("bearer  xyz "); !ok || tok != "xyz" {
		t.Fatalf("BearerToken lowercase = %q, %v", tok, ok)
	}
	for _, bad := range []string{"", "Bearer", "Bearer   ", "Basic abc"} {
		if _, ok := BearerToken(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
