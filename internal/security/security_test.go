package security

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t1, err := GenerateToken()
	require.NoError(t, err)
	t2, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, t1, 64)
	assert.NotEqual(t, t1, t2)

	_, err = hex.DecodeString(t1)
	assert.NoError(t, err, "token must be hex-encoded")
}

func TestVerifyToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	hash := HashToken(token)
	assert.Equal(t, hash, HashToken(token), "hash must be deterministic")
	assert.True(t, VerifyToken(token, hash))

	other, err := GenerateToken()
	require.NoError(t, err)
	assert.False(t, VerifyToken(other, hash))
	assert.False(t, VerifyToken(token, HashToken(other)))
	assert.False(t, VerifyToken(token, "not-a-hash"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher("operator-secret")
	require.NoError(t, err)

	for _, plaintext := range []string{"sk-ant-api03-abcdef", "", "with spaces and ünïcode"} {
		blob, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Len(t, strings.Split(blob, ":"), 3)

		got, err := c.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptNonceIsFresh(t *testing.T) {
	c, err := NewCipher("operator-secret")
	require.NoError(t, err)

	b1, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	b2, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2)
}

func TestDecryptSameSecretDifferentCipher(t *testing.T) {
	// The key is derived from the secret alone, so a new Cipher built from
	// the same secret must decrypt old blobs.
	c1, err := NewCipher("operator-secret")
	require.NoError(t, err)
	c2, err := NewCipher("operator-secret")
	require.NoError(t, err)

	blob, err := c1.Encrypt("hello")
	require.NoError(t, err)
	got, err := c2.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestDecryptTamperedBlob(t *testing.T) {
	c, err := NewCipher("operator-secret")
	require.NoError(t, err)

	blob, err := c.Encrypt("sensitive credential")
	require.NoError(t, err)
	parts := strings.Split(blob, ":")

	flip := func(s string) string {
		b := []byte(s)
		if b[0] == 'a' {
			b[0] = 'b'
		} else {
			b[0] = 'a'
		}
		return string(b)
	}

	// Flipped ciphertext byte
	_, err = c.Decrypt(parts[0] + ":" + parts[1] + ":" + flip(parts[2]))
	assert.ErrorIs(t, err, ErrAuthentication)

	// Flipped tag byte
	_, err = c.Decrypt(parts[0] + ":" + flip(parts[1]) + ":" + parts[2])
	assert.ErrorIs(t, err, ErrAuthentication)

	// Wrong key
	other, err := NewCipher("different-secret")
	require.NoError(t, err)
	_, err = other.Decrypt(blob)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecryptMalformedBlob(t *testing.T) {
	c, err := NewCipher("operator-secret")
	require.NoError(t, err)

	for _, blob := range []string{
		"",
		"nothexatall",
		"aabb:ccdd",
		"zz:aabb:ccdd",
		"aabb:zz:ccdd",
		"aabb:ccdd:zz",
		"aabb:ccdd:eeff", // nonce too short
	} {
		_, err := c.Decrypt(blob)
		assert.ErrorIs(t, err, ErrAuthentication, "blob %q", blob)
	}
}

func TestNewCipherEmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}
