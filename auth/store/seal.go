package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of a sealing key.
const KeySize = chacha20poly1305.KeySize

// DeriveKey stretches a passphrase into a sealing key with Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

type sealedSlots struct {
	inner Slots
	aead  cipher.AEAD
}

// Sealed wraps slots so values are stored as base64(nonce || XChaCha20-Poly1305
// ciphertext). The slot key is authenticated as additional data, so a value
// copied into another slot fails to open.
func Sealed(inner Slots, key []byte) (Slots, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("invalid sealing key: %w", err)
	}
	return &sealedSlots{inner: inner, aead: aead}, nil
}

func (s *sealedSlots) Get(ctx context.Context, key string) (string, bool, error) {
	encoded, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	data, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", false, fmt.Errorf("%w: slot %v", ErrSealed, key)
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("%w: slot %v", ErrSealed, key)
	}
	return string(plain), true, nil
}

func (s *sealedSlots) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Set(ctx, key, base64.RawStdEncoding.EncodeToString(sealed))
}

func (s *sealedSlots) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
