package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestEncryptDecryptRoundtrip(t *testing.T) {
	plaintext := []byte(`{"company_id":"c1","user_id":"u1"}`)

	token, err := EncryptAESGCM(validKeyHex, plaintext)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decrypted, err := DecryptAESGCM(validKeyHex, token)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesUniqueTokens(t *testing.T) {
	plaintext := []byte("same payload")

	first, err := EncryptAESGCM(validKeyHex, plaintext)
	require.NoError(t, err)
	second, err := EncryptAESGCM(validKeyHex, plaintext)
	require.NoError(t, err)

	// Random nonces mean identical payloads never produce identical tokens.
	assert.NotEqual(t, first, second)
}

func TestEncryptRejectsBadKeys(t *testing.T) {
	_, err := EncryptAESGCM("deadbeef", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidAESKeySize)

	_, err = EncryptAESGCM("not-hex-at-all", []byte("x"))
	assert.Error(t, err)
}

func TestDecryptRejectsBadKeys(t *testing.T) {
	_, err := DecryptAESGCM("deadbeef", "irrelevant")
	assert.ErrorIs(t, err, ErrInvalidAESKeySize)
}

func TestDecryptRejectsMalformedToken(t *testing.T) {
	_, err := DecryptAESGCM(validKeyHex, "!!!not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidTokenFormat)
}

func TestDecryptRejectsTooShortToken(t *testing.T) {
	short := base64.URLEncoding.EncodeToString([]byte("tiny"))
	_, err := DecryptAESGCM(validKeyHex, short)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	token, err := EncryptAESGCM(validKeyHex, []byte("payload"))
	require.NoError(t, err)

	otherKey := strings.Repeat("ab", 32)
	_, err = DecryptAESGCM(otherKey, token)
	assert.ErrorIs(t, err, ErrTokenDecryptionFailed)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	token, err := EncryptAESGCM(validKeyHex, []byte("payload"))
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(token)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.URLEncoding.EncodeToString(raw)

	_, err = DecryptAESGCM(validKeyHex, tampered)
	assert.ErrorIs(t, err, ErrTokenDecryptionFailed)
}
