package chat

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	// ErrDecryptFailed is returned when stored content cannot be opened,
	// usually because the configured key changed.
	ErrDecryptFailed = errors.New("failed to decrypt message content")
)

const nonceSize = 24

// Cipher is the reversible at-rest transform applied to message content
// before persistence. The key comes from configuration, so this is an
// encode/decode code path, not a confidentiality boundary.
type Cipher struct {
	key [32]byte
}

// NewCipher derives the transform key from the configured secret.
func NewCipher(secret string) *Cipher {
	return &Cipher{key: sha256.Sum256([]byte(secret))}
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// base64-encoded nonce||ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(data) < nonceSize {
		return "", ErrDecryptFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plaintext, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
