package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// secretVersion is the version byte for the sealed blob format.
	secretVersion = 0x01

	// sealedPrefix marks a column value written by TokenCipher
	sealedPrefix = "enc:v1:"

	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32

	hkdfInfo = "marketsync account tokens"
)

var (
	// ErrInvalidKeySize is returned when the encryption key is not 32 bytes.
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

	// ErrInvalidBlobSize is returned when the sealed blob is too small.
	ErrInvalidBlobSize = errors.New("encrypted blob is too small")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported secret blob version")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data).
	ErrDecryptionFailed = errors.New("failed to decrypt secret blob")
)

// TokenCipher seals marketplace OAuth tokens with AES-256-GCM before they are
// written to marketplace_accounts.
//
// Sealed values are stored as "enc:v1:" + base64(version(1) || nonce(12) || ciphertext).
// Values without the prefix are returned as-is, so rows written by the OAuth
// handshake in plain text stay readable. A nil *TokenCipher stores plain text.
type TokenCipher struct {
	gcm cipher.AEAD
}

// DeriveTokenKey stretches an operator secret into a 32-byte key with HKDF-SHA256
func DeriveTokenKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("token encryption secret is empty")
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// NewTokenCipher creates a cipher with the given 32-byte key.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &TokenCipher{gcm: gcm}, nil
}

// Seal encrypts a token for storage. Empty tokens stay empty.
func (c *TokenCipher) Seal(token string) (string, error) {
	if c == nil || token == "" {
		return token, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := c.gcm.Seal(nil, nonce, []byte(token), nil)

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = secretVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)

	return sealedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// Open returns the plain token of a stored value
func (c *TokenCipher) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if c == nil {
		return "", fmt.Errorf("%w: no token key configured", ErrDecryptionFailed)
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	if len(blob) < 1+nonceSize+c.gcm.Overhead() {
		return "", ErrInvalidBlobSize
	}
	if blob[0] != secretVersion {
		return "", fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	plaintext, err := c.gcm.Open(nil, blob[1:1+nonceSize], blob[1+nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
