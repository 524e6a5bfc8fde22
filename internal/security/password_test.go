package security_test

import (
	"strings"
	"testing"

	"github.com/Rrens/flora-expert/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := security.NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "pw" {
		t.Fatal("hash must not equal the password")
	}

	ok, err := h.Matches(hash, "pw")
	if err != nil || !ok {
		t.Errorf("expected match, got %v %v", ok, err)
	}

	ok, err = h.Matches(hash, "PW")
	if err != nil || ok {
		t.Errorf("expected mismatch, got %v %v", ok, err)
	}

	if _, err := h.Matches("not-a-hash", "pw"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestPasswordHasher_LongPasswords(t *testing.T) {
	h := security.NewPasswordHasher(bcrypt.MinCost)

	long := strings.Repeat("x", 80)
	hash, err := h.Hash(long)
	if err != nil {
		t.Fatalf("hash of 80-byte password: %v", err)
	}

	ok, err := h.Matches(hash, long)
	if err != nil || !ok {
		t.Errorf("expected match, got %v %v", ok, err)
	}

	// bcrypt alone ignores everything past byte 72.
	ok, err = h.Matches(hash, strings.Repeat("x", 72)+"yyyyyyyy")
	if err != nil || ok {
		t.Errorf("expected mismatch on differing tail, got %v %v", ok, err)
	}
}
