package security

import (
	"testing"
	"time"
)

func TestMintAndParse(t *testing.T) {
	t.Parallel()

	tok, err := MintToken("access-secret", "user-1", "a@x.com", "user", time.Hour)
	if err != nil {
		t.Fatalf("MintToken error: %v", err)
	}

	claims, err := ParseToken(tok, "access-secret")
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if claims.Subject != "user-1" {
		t.Fatalf("Subject = %q, want %q", claims.Subject, "user-1")
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("Email = %q, want %q", claims.Email, "a@x.com")
	}
	if claims.Role != "user" {
		t.Fatalf("Role = %q, want %q", claims.Role, "user")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := MintToken("right-secret", "u1", "a@x.com", "user", time.Hour)
	if err != nil {
		t.Fatalf("MintToken error: %v", err)
	}

	if _, err := ParseToken(tok, "wrong-secret"); err == nil {
		t.Fatal("expected error for wrong secret, got nil")
	}
}

// A token minted under one kind's secret must never validate under the
// other's, in either direction.
func TestAccessAndRefreshSecretsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	access, err := MintToken("access-secret", "u1", "a@x.com", "user", time.Hour)
	if err != nil {
		t.Fatalf("MintToken error: %v", err)
	}
	refresh, err := MintToken("refresh-secret", "u1", "a@x.com", "user", time.Hour)
	if err != nil {
		t.Fatalf("MintToken error: %v", err)
	}

	if _, err := ParseToken(access, "refresh-secret"); err == nil {
		t.Fatal("access token accepted under refresh secret")
	}
	if _, err := ParseToken(refresh, "access-secret"); err == nil {
		t.Fatal("refresh token accepted under access secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	t.Parallel()

	tok, err := MintToken("secret", "u1", "a@x.com", "user", -time.Minute)
	if err != nil {
		t.Fatalf("MintToken error: %v", err)
	}

	if _, err := ParseToken(tok, "secret"); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseToken("not.a.jwt", "secret"); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
}
