package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomBytes(t *testing.T) {
	b1, err := CryptoRandomBytes(32)
	require.NoError(t, err)
	assert.Len(t, b1, 32)

	b2, err := CryptoRandomBytes(32)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2, "two draws should not collide")
}

func TestCryptoRandomString(t *testing.T) {
	s, err := CryptoRandomString(15)
	require.NoError(t, err)
	assert.Len(t, s, 15)
}

func TestSHA256Hex(t *testing.T) {
	// Deterministic and 64 hex chars
	h := SHA256Hex("some-code")
	assert.Len(t, h, 64)
	assert.Equal(t, h, SHA256Hex("some-code"))
	assert.NotEqual(t, h, SHA256Hex("other-code"))
}

func TestConstantTimeEquals(t *testing.T) {
	assert.True(t, ConstantTimeEquals("abc", "abc"))
	assert.False(t, ConstantTimeEquals("abc", "abd"))
	assert.False(t, ConstantTimeEquals("abc", "abcd"))
	assert.True(t, ConstantTimeEquals("", ""))
}
