package postgres

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

var testKey = []byte("01234567890123456789012345678901")

func TestTokenCipher_RoundTrip(t *testing.T) {
	c, err := NewTokenCipher(testKey)
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}

	for _, token := range []string{"APP_USR-1234567890-abcdef", "TG-5f0c2e", "ção é ok"} {
		sealed, err := c.Seal(token)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if !strings.HasPrefix(sealed, sealedPrefix) {
			t.Errorf("sealed value %q lacks prefix", sealed)
		}
		if strings.Contains(sealed, token) {
			t.Error("sealed value leaks the token")
		}

		opened, err := c.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if opened != token {
			t.Errorf("got %q, want %q", opened, token)
		}
	}
}

func TestTokenCipher_PlainTextPassesThrough(t *testing.T) {
	c, _ := NewTokenCipher(testKey)

	got, err := c.Open("APP_USR-plain")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "APP_USR-plain" {
		t.Errorf("got %q, want plain token unchanged", got)
	}

	empty, err := c.Seal("")
	if err != nil || empty != "" {
		t.Errorf("Seal(\"\") = %q, %v; want empty", empty, err)
	}
}

func TestTokenCipher_NilCipher(t *testing.T) {
	var c *TokenCipher

	sealed, err := c.Seal("APP_USR-1")
	if err != nil || sealed != "APP_USR-1" {
		t.Errorf("nil Seal = %q, %v; want plain text", sealed, err)
	}

	other, _ := NewTokenCipher(testKey)
	blob, _ := other.Seal("APP_USR-1")
	if _, err := c.Open(blob); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("nil Open of sealed value: got %v, want ErrDecryptionFailed", err)
	}
}

func TestTokenCipher_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"too short", 16},
		{"too long", 64},
		{"empty", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenCipher(make([]byte, tt.keySize))
			if !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("expected ErrInvalidKeySize, got %v", err)
			}
		})
	}
}

func TestTokenCipher_OpenInvalidBlob(t *testing.T) {
	c, _ := NewTokenCipher(testKey)
	encode := func(b []byte) string { return sealedPrefix + base64.StdEncoding.EncodeToString(b) }

	tests := []struct {
		name    string
		stored  string
		wantErr error
	}{
		{"bad base64", sealedPrefix + "!!!", ErrDecryptionFailed},
		{"empty", encode(nil), ErrInvalidBlobSize},
		{"too short", encode([]byte{0x01, 0x02}), ErrInvalidBlobSize},
		{"wrong version", encode(append([]byte{0x99}, make([]byte, 100)...)), ErrUnsupportedVersion},
		{"corrupted", encode(append([]byte{secretVersion}, make([]byte, 100)...)), ErrDecryptionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Open(tt.stored)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenCipher_WrongKey(t *testing.T) {
	c1, _ := NewTokenCipher(testKey)
	c2, _ := NewTokenCipher([]byte("10987654321098765432109876543210"))

	sealed, err := c1.Seal("APP_USR-secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := c2.Open(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed with wrong key, got %v", err)
	}
}

func TestTokenCipher_UniqueNonce(t *testing.T) {
	c, _ := NewTokenCipher(testKey)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		sealed, err := c.Seal("same value")
		if err != nil {
			t.Fatalf("Seal %d: %v", i, err)
		}
		if seen[sealed] {
			t.Errorf("duplicate sealed value at index %d", i)
		}
		seen[sealed] = true
	}
}

func TestDeriveTokenKey(t *testing.T) {
	k1, err := DeriveTokenKey("operator secret")
	if err != nil {
		t.Fatalf("DeriveTokenKey: %v", err)
	}
	if len(k1) != keySize {
		t.Errorf("key length = %d, want %d", len(k1), keySize)
	}

	k2, _ := DeriveTokenKey("operator secret")
	if string(k1) != string(k2) {
		t.Error("derivation must be deterministic")
	}

	k3, _ := DeriveTokenKey("another secret")
	if string(k1) == string(k3) {
		t.Error("different secrets must derive different keys")
	}

	if _, err := DeriveTokenKey(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
