package crypto

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("ENCRYPTION_KEY", "test-operator-secret")
	os.Exit(m.Run())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, plaintext := range []string{
		"4K9sV2mPqXoTn8rJhGfDcWbYeAzLu5iNkE3tH7xQpMaS",
		"[12, 34, 56, 78, 90, 11, 22, 33]",
		"",
	} {
		sealed, err := Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, EnvelopePrefix))

		opened, err := Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	first, err := Encrypt("same-key-material")
	require.NoError(t, err)
	second, err := Encrypt("same-key-material")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	openedFirst, err := Decrypt(first)
	require.NoError(t, err)
	openedSecond, err := Decrypt(second)
	require.NoError(t, err)
	assert.Equal(t, openedFirst, openedSecond)
}

func TestDecryptDetectsTampering(t *testing.T) {
	sealed, err := Encrypt("secret-key-material")
	require.NoError(t, err)

	parts := strings.Split(sealed, ":")
	require.Len(t, parts, 3)

	flip := func(s string, i int) string {
		b := []byte(s)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		return string(b)
	}

	// flip one hex char in the IV
	tampered := parts[0] + ":" + flip(parts[1], 0) + ":" + parts[2]
	_, err = Decrypt(tampered)
	assert.ErrorIs(t, err, ErrIntegrity)

	// flip one hex char in the ciphertext
	tampered = parts[0] + ":" + parts[1] + ":" + flip(parts[2], 4)
	_, err = Decrypt(tampered)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestDecryptRejectsMalformedEnvelopes(t *testing.T) {
	for _, stored := range []string{
		EnvelopePrefix + "deadbeef",                      // missing ciphertext part
		EnvelopePrefix + "zzzz:" + "abcd",                // bad IV hex
		EnvelopePrefix + "deadbeef:" + "abcd",            // IV wrong length
		EnvelopePrefix + strings.Repeat("ab", 12) + ":zz", // bad ciphertext hex
	} {
		_, err := Decrypt(stored)
		assert.ErrorIs(t, err, ErrIntegrity, "stored=%q", stored)
	}
}

func TestDecryptPassesLegacyKeysThrough(t *testing.T) {
	legacy := "5eykt4UsFv8P8NJdTREpY1vzqKqZKvdpKuc147dw2N9d"
	opened, err := Decrypt(legacy)
	require.NoError(t, err)
	assert.Equal(t, legacy, opened)
	assert.False(t, IsEncrypted(legacy))
}
