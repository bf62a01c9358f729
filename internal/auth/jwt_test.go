package auth

import (
	"testing"
	"time"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret-key-1234", time.Hour)

	token, err := svc.GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	userID, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("ParseToken() user id = %d, want 42", userID)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("test-secret-key-1234", -time.Minute)

	token, err := svc.GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := NewTokenService("issuer-secret-key-1", time.Hour)
	verifier := NewTokenService("other-secret-key-22", time.Hour)

	token, err := issuer.GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := verifier.ParseToken(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("test-secret-key-1234", time.Hour)
	if _, err := svc.ParseToken("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "s3cret-password") {
		t.Error("CheckPassword() = false for correct password")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Error("CheckPassword() = true for wrong password")
	}
}
