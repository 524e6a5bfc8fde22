package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// Sealer encrypts small records at rest with AES-GCM. The nonce is
// prepended to every ciphertext.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a sealer. Key must be 16, 24, or 32 bytes.
func NewSealer(key []byte) (*Sealer, error) {
	keyLen := len(key)
	if keyLen != 16 && keyLen != 24 && keyLen != 32 {
		return nil, fmt.Errorf("invalid key length: %d (must be 16, 24, or 32)", keyLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// NewSealerFromBase64 creates a sealer from a base64-encoded key
func NewSealerFromBase64(keyBase64 string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	return NewSealer(key)
}

// NewSealerFromSecret derives a 256-bit key from an arbitrary secret
func NewSealerFromSecret(secret string) (*Sealer, error) {
	sum := sha256.Sum256([]byte("flora-snapshot:" + secret))
	return NewSealer(sum[:])
}

// Seal encrypts plaintext
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// SealJSON marshals v and seals it
func (s *Sealer) SealJSON(v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return s.Seal(plaintext)
}

// OpenJSON opens sealed data and unmarshals it into v
func (s *Sealer) OpenJSON(sealed []byte, v any) error {
	plaintext, err := s.Open(sealed)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
