package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected digest format: %s", hash)
	}
	if !CheckPassword(hash, "secret123") {
		t.Fatal("expected correct password to verify")
	}
	if CheckPassword(hash, "secret124") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestHashPasswordProducesDistinctDigests(t *testing.T) {
	h1, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected salted digests to differ")
	}
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	if CheckPassword("not-a-bcrypt-digest", "secret123") {
		t.Fatal("expected malformed digest to fail verification")
	}
	if CheckPassword("", "secret123") {
		t.Fatal("expected empty digest to fail verification")
	}
}
