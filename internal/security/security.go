// Package security provides the gateway token and credential primitives:
// opaque random access tokens, one-way hashes for at-rest storage, and
// authenticated encryption for customer-supplied API keys.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// tokenBytes gives 256 bits of entropy per gateway token.
const tokenBytes = 32

// ErrAuthentication is returned when an encrypted blob is malformed or its
// authentication tag does not verify.
var ErrAuthentication = errors.New("ciphertext authentication failed")

// GenerateToken returns a fresh hex-encoded gateway token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the hex sha256 digest of a token. Only this digest is
// ever persisted; the raw token is delivered once and discarded.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken recomputes the digest and compares it against the stored hash
// in constant time.
func VerifyToken(token, hash string) bool {
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// Cipher performs authenticated symmetric encryption with a key derived
// deterministically from a single operator-supplied secret.
type Cipher struct {
	key [32]byte
}

func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is required")
	}
	return &Cipher{key: sha256.Sum256([]byte(secret))}, nil
}

// Encrypt seals a plaintext with AES-256-GCM under a fresh 12-byte nonce.
// The blob format is "nonce:tag:ciphertext", all hex, so it can be
// decrypted without auxiliary state.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext)), nil
}

// Decrypt opens a blob produced by Encrypt. Any malformation or tag
// mismatch yields ErrAuthentication.
func (c *Cipher) Decrypt(blob string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return "", ErrAuthentication
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", ErrAuthentication
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrAuthentication
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrAuthentication
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", ErrAuthentication
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(plaintext), nil
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
