package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keyInfo = "milo-wallet-data"

// DecryptionError is returned when a stored wallet blob cannot be opened
// with the configured key.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("failed to decrypt wallet data: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// Cipher seals and opens wallet blobs with AES-256-GCM. The AES key is
// derived from the WALLET_KEY secret with HKDF-SHA256. Blobs are base64 of
// nonce || ciphertext.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the data key from secret.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("wallet key is required")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive wallet key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts material into a storable blob.
func (c *Cipher) Seal(m Material) (string, error) {
	plaintext, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode wallet data: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a stored blob. Every failure is a *DecryptionError.
func (c *Cipher) Open(blob string) (Material, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return Material{}, &DecryptionError{Err: fmt.Errorf("invalid base64: %w", err)}
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return Material{}, &DecryptionError{Err: errors.New("ciphertext too short")}
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return Material{}, &DecryptionError{Err: err}
	}

	var m Material
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return Material{}, &DecryptionError{Err: fmt.Errorf("invalid wallet data: %w", err)}
	}
	if err := m.Validate(); err != nil {
		return Material{}, &DecryptionError{Err: err}
	}
	return m, nil
}
