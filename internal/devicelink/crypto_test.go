package devicelink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestECBRoundTrip(t *testing.T) {
	key := sessionKey("0123456789abcdef")
	block, err := newECBEncrypter(key)
	require.NoError(t, err)

	for _, plaintext := range [][]byte{
		[]byte(`{"dps":{"20":true}}`),
		[]byte("{}"),
		[]byte("exactly16bytes!!"),
		[]byte(""),
	} {
		ciphertext := encryptECB(block, plaintext)
		assert.Equal(t, 0, len(ciphertext)%block.BlockSize())

		got, err := decryptECB(block, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestDecryptECB_RejectsNonBlockAlignedInput(t *testing.T) {
	key := sessionKey("0123456789abcdef")
	block, err := newECBEncrypter(key)
	require.NoError(t, err)

	_, err = decryptECB(block, []byte("short"))
	assert.Error(t, err)
}

func TestSessionKey_DifferentLocalKeysDifferentSessionKeys(t *testing.T) {
	a := sessionKey("key-one-aaaaaaaa")
	b := sessionKey("key-two-bbbbbbbb")
	assert.NotEqual(t, a, b)
}
