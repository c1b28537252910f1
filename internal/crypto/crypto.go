// Package crypto owns the master encryption key and performs authenticated
// encryption of sensitive record fields. Every field is sealed
// independently with AES-256-GCM so partial reads never require decrypting
// a whole record.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/frahmantamala/clinical-records/internal"
)

const (
	keySize   = 32
	nonceSize = 12

	// KeyVersion tags every envelope so a future key rotation can tell
	// which key sealed a given ciphertext.
	KeyVersion byte = 1
)

// Envelope layout: [1-byte key version][12-byte nonce][ciphertext+tag].
// A fresh random nonce per encryption means sealing the same plaintext
// twice never yields the same envelope.
type Service struct {
	aead cipher.AEAD
}

// NewService builds a field cipher from a 32-byte master key. The key is
// held in memory only; it is never logged and never appears in errors.
func NewService(key []byte) (*Service, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Service{aead: aead}, nil
}

// EncryptField seals a plaintext field value into a self-contained envelope.
func (s *Service) EncryptField(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	envelope := make([]byte, 0, 1+nonceSize+len(plaintext)+s.aead.Overhead())
	envelope = append(envelope, KeyVersion)
	envelope = append(envelope, nonce...)
	envelope = s.aead.Seal(envelope, nonce, plaintext, nil)
	return envelope, nil
}

// DecryptField opens an envelope produced by EncryptField. Any integrity
// failure, including a truncated or malformed envelope, surfaces as
// ErrTamperedData: corrupted patient data is never returned silently.
func (s *Service) DecryptField(envelope []byte) ([]byte, error) {
	if len(envelope) < 1+nonceSize+s.aead.Overhead() {
		return nil, internal.ErrTamperedData
	}
	if envelope[0] != KeyVersion {
		return nil, internal.ErrTamperedData.WithDetails(map[string]any{"key_version": envelope[0]})
	}

	nonce := envelope[1 : 1+nonceSize]
	ciphertext := envelope[1+nonceSize:]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, internal.ErrTamperedData
	}
	return plaintext, nil
}
