// Package idcipher turns internal numeric identifiers into opaque,
// URL-safe tokens and back. Tokens are deterministic for a given secret and
// authenticated, so a tampered or foreign token never decodes to a valid id.
package idcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
)

const (
	nonceSize = 12
	idSize    = 8
	keyInfo   = "magiccode/idcipher/v1"
)

var encoding = base64.RawURLEncoding

// Cipher encrypts and decrypts account and record identifiers.
type Cipher struct {
	aead   cipher.AEAD
	macKey []byte
}

// New derives the encryption and nonce keys from secret.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("identifier secret is required")
	}

	keys := make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), keys); err != nil {
		return nil, fmt.Errorf("failed to derive identifier keys: %w", err)
	}

	block, err := aes.NewCipher(keys[:32])
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: aead, macKey: keys[32:]}, nil
}

// Encrypt returns the token for id.
func (c *Cipher) Encrypt(id uint) string {
	plaintext := make([]byte, idSize)
	binary.BigEndian.PutUint64(plaintext, uint64(id))

	nonce := c.nonceFor(plaintext)
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return encoding.EncodeToString(out)
}

// Decrypt returns the id hidden in token, or customerrors.ErrDecryption.
func (c *Cipher) Decrypt(token string) (uint, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil || len(raw) != nonceSize+idSize+c.aead.Overhead() {
		return 0, customerrors.ErrDecryption
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return 0, customerrors.ErrDecryption
	}
	if !hmac.Equal(nonce, c.nonceFor(plaintext)) {
		return 0, customerrors.ErrDecryption
	}

	id := binary.BigEndian.Uint64(plaintext)
	if id == 0 || uint64(uint(id)) != id {
		return 0, customerrors.ErrDecryption
	}
	return uint(id), nil
}

// nonceFor derives a synthetic nonce from the plaintext.
func (c *Cipher) nonceFor(plaintext []byte) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(plaintext)
	return mac.Sum(nil)[:nonceSize]
}
