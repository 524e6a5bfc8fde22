package security_test

import (
	"encoding/base64"
	"testing"

	"github.com/Rrens/flora-expert/internal/security"
)

func TestSealer_SealOpen(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	sealer, err := security.NewSealer(key)
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"snapshot", `{"uid":"ana@x.com","email":"ana@x.com","displayName":"Ana"}`},
		{"unicode", "unicode: 日本語 中文 🌱"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := sealer.Seal([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("seal failed: %v", err)
			}

			opened, err := sealer.Open(sealed)
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}

			if string(opened) != tt.plaintext {
				t.Errorf("opened text does not match: got %q, want %q", opened, tt.plaintext)
			}
		})
	}
}

func TestSealer_InvalidKey(t *testing.T) {
	for _, n := range []int{0, 15, 31, 33} {
		if _, err := security.NewSealer(make([]byte, n)); err == nil {
			t.Errorf("expected error for key length %d", n)
		}
	}
}

func TestSealer_WrongKey(t *testing.T) {
	a, _ := security.NewSealerFromSecret("one")
	b, _ := security.NewSealerFromSecret("two")

	sealed, err := a.Seal([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Error("expected error opening with a different key")
	}
	if _, err := a.Open([]byte("x")); err == nil {
		t.Error("expected error for short ciphertext")
	}
}

func TestSealer_JSONAndBase64Key(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 16))
	sealer, err := security.NewSealerFromBase64(key)
	if err != nil {
		t.Fatal(err)
	}

	type rec struct{ Name string }
	sealed, err := sealer.SealJSON(rec{Name: "fern"})
	if err != nil {
		t.Fatal(err)
	}

	var out rec
	if err := sealer.OpenJSON(sealed, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "fern" {
		t.Errorf("got %q", out.Name)
	}
}
