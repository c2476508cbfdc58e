package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength  = 32
	iterations = 100000
	nonceSize  = 12 // GCM standard nonce size
)

// keySalt is fixed so the same passphrase always derives the same key;
// records written by one process remain readable by the next.
var keySalt = []byte("kxshare-kdf-salt")

// ErrDecrypt is returned when ciphertext is malformed or was produced
// under a different key. Callers in the password path must treat it the
// same as a wrong password.
var ErrDecrypt = errors.New("decryption failed")

// Cipher holds a single AES-GCM key derived once from a passphrase.
// Construct it at startup and pass it to every component that needs it;
// the derivation cost is paid exactly once per process.
type Cipher struct {
	aead cipher.AEAD
}

func New(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}

	key := pbkdf2.Key([]byte(passphrase), keySalt, iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher creation failed: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM creation failed: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under the process key and returns
// base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce generation failed: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed, tampered or foreign-key
// ciphertext yields an error wrapping ErrDecrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrDecrypt)
	}

	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plaintext), nil
}
