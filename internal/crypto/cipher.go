// Package crypto guards document content at rest. Sensitive columns are
// encrypted with AES-256-CBC under a process-wide key and stored as
// base64(iv || ciphertext) tokens.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
)

const keySize = 32 // AES-256

// Cipher encrypts and decrypts opaque text blobs. It knows nothing about
// document semantics. Safe for concurrent use: the key is read-only after
// construction and every call draws a fresh IV.
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from a base64-encoded 256-bit key. An empty
// key is a critical-but-non-fatal condition: the process substitutes a
// random ephemeral key so a single run still works, but anything written
// under it is unrecoverable after restart.
func NewCipher(base64Key string, logger *slog.Logger) (*Cipher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if base64Key == "" {
		key := make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate ephemeral key: %w", err)
		}
		logger.Error("crypto.key.missing",
			"hint", "AES_KEY not set; using an ephemeral key, stored data will be unrecoverable after restart")
		return &Cipher{key: key}, nil
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decode AES_KEY: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("AES_KEY must decode to %d bytes, got %d", keySize, len(key))
	}
	return &Cipher{key: key}, nil
}

// Encrypt returns the base64 token for plaintext. Empty plaintext maps to
// an empty token with no encryption attempted.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	padded := pad([]byte(plaintext))
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(append(iv, ciphertext...)), nil
}

// Decrypt is the inverse of Encrypt. An empty token maps to empty
// plaintext. Any unrecoverable token yields a KindDecryption error so the
// caller can isolate the bad field instead of failing silently.
func (c *Cipher) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", common.NewAppError(common.KindDecryption, "token is not valid base64", err)
	}
	if len(raw) < aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", common.NewAppError(common.KindDecryption, "token length is not a multiple of the block size", nil)
	}

	iv := raw[:aes.BlockSize]
	ciphertext := raw[aes.BlockSize:]

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", common.NewAppError(common.KindDecryption, "init cipher", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpad(padded)
	if err != nil {
		return "", common.NewAppError(common.KindDecryption, "unpadding failed (wrong key or corrupted token)", err)
	}
	return string(plaintext), nil
}

// pad applies PKCS#7 padding to a full block boundary.
func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty ciphertext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
