package security

import (
	"bytes"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("P@ss1234")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if bytes.Contains(hash, []byte("P@ss1234")) {
		t.Fatal("hash contains plaintext password")
	}

	ok, err := VerifyPassword("P@ss1234", hash)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}
}

func TestVerifyPasswordMismatch(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("P@ss1234")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	ok, err := VerifyPassword("wrong-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if bytes.Equal(h1, h2) {
		t.Fatal("two hashes of one password are identical; salt missing")
	}
}

func TestVerifyPasswordGarbageHash(t *testing.T) {
	t.Parallel()

	if _, err := VerifyPassword("anything", []byte("not-a-bcrypt-hash")); err == nil {
		t.Fatal("expected error for malformed hash, got nil")
	}
}
