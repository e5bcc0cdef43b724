package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"sync"
)

// The store blob format is iv|ciphertext with AES-256-CBC and a key
// derived by hashing the configured secret with SHA-256. The iv is
// always 16 bytes and freshly random per encryption.

const IVSize = aes.BlockSize

var (
	keyMu sync.RWMutex
	key   []byte
)

// SetSecret derives and installs the AES-256 key from the configured
// secret. An empty secret clears the key.
func SetSecret(secret string) {
	keyMu.Lock()
	defer keyMu.Unlock()
	if secret == "" {
		key = nil
		return
	}
	sum := sha256.Sum256([]byte(secret))
	key = sum[:]
}

// Enabled reports whether a key is installed.
func Enabled() bool {
	keyMu.RLock()
	defer keyMu.RUnlock()
	return len(key) == 32
}

func currentKey() ([]byte, error) {
	keyMu.RLock()
	defer keyMu.RUnlock()
	if len(key) != 32 {
		return nil, errors.New("encryption key not configured")
	}
	return append([]byte(nil), key...), nil
}

// Encrypt returns iv|ciphertext for the given plaintext.
func Encrypt(plaintext []byte) ([]byte, error) {
	k, err := currentKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return append(iv, out...), nil
}

// Decrypt expects iv|ciphertext and returns the plaintext. It fails on
// truncated input, misaligned ciphertext or invalid padding.
func Decrypt(data []byte) ([]byte, error) {
	k, err := currentKey()
	if err != nil {
		return nil, err
	}
	if len(data) < IVSize {
		return nil, errors.New("ciphertext too short")
	}
	iv := data[:IVSize]
	ct := data[IVSize:]
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext not block aligned")
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
