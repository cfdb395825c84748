package auth

import (
	"strings"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewHasher()

	hash, err := h.Hash("s3cret!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("expected PHC argon2id prefix, got %q", hash)
	}

	if !h.Verify("s3cret!", hash) {
		t.Error("expected correct password to verify")
	}
	if h.Verify("wrong", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestHashSaltedPerCall(t *testing.T) {
	h := NewHasher()

	h1, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if h1 == h2 {
		t.Error("expected distinct hashes for the same password (random salt)")
	}
	if !h.Verify("same-password", h1) || !h.Verify("same-password", h2) {
		t.Error("both hashes should verify against the original password")
	}
}

func TestVerifyCrossPassword(t *testing.T) {
	h := NewHasher()

	hash, err := h.Hash("password-two")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h.Verify("password-one", hash) {
		t.Error("hash of p2 must not verify p1")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := NewHasher()

	cases := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=3,p=4$short", // too few segments
		"$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA", // bad base64 salt
		"$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!", // bad base64 hash
	}
	for _, hash := range cases {
		if h.Verify("anything", hash) {
			t.Errorf("malformed hash %q must not verify", hash)
		}
	}
}

func TestHashUnicodePassword(t *testing.T) {
	h := NewHasher()

	hash, err := h.Hash("pässwörd-日本語-🔒")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify("pässwörd-日本語-🔒", hash) {
		t.Error("unicode password should round-trip")
	}
}
