package devicelink

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"errors"
	"fmt"
)

var ErrInvalidSessionKey = errors.New("devicelink: InvalidSessionKey: could not construct AES cipher from session key")

// sessionKey derives the AES-128 key used to encrypt/decrypt frame payloads.
// Protocol versions up to 3.3 use the local key's MD5 digest directly;
// versions starting at 3.4 negotiate a session key over an initial
// handshake frame (see negotiateSessionKey34), falling back to this scheme
// when negotiation cannot be completed.
func sessionKey(localKey string) [16]byte {
	return md5.Sum([]byte(localKey))
}

func newECBEncrypter(key [16]byte) (cipher.Block, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionKey, err)
	}
	return block, nil
}

// encryptECB encrypts plaintext under AES-128-ECB with PKCS#7 padding, the
// scheme the device firmware expects for every payload below protocol 3.4's
// GCM-based framing (not implemented here; see handshake34.go).
func encryptECB(block cipher.Block, plaintext []byte) []byte {
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	for off := 0; off < len(padded); off += block.BlockSize() {
		block.Encrypt(out[off:off+block.BlockSize()], padded[off:off+block.BlockSize()])
	}
	return out
}

func decryptECB(block cipher.Block, ciphertext []byte) ([]byte, error) {
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("devicelink: ciphertext length %d not a multiple of block size %d", len(ciphertext), bs)
	}
	out := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += bs {
		block.Decrypt(out[off:off+bs], ciphertext[off:off+bs])
	}
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("devicelink: cannot unpad empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("devicelink: invalid PKCS7 padding")
	}
	return data[:len(data)-padLen], nil
}
