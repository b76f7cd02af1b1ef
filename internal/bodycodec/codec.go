// Package bodycodec encrypts and decrypts message bodies. Bodies are stored
// as "enc:v1:<base64(nonce||ciphertext)>"; anything without that prefix is a
// legacy plaintext row and passes through unchanged.
package bodycodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const prefix = "enc:v1:"

// DecryptError marks a body that carries the encrypted prefix but cannot be
// deciphered. Readers map it to an "unavailable" placeholder instead of
// failing the whole read.
type DecryptError struct {
	Cause error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("message body undecipherable: %v", e.Cause)
}

func (e *DecryptError) Unwrap() error { return e.Cause }

type Codec struct {
	aead cipher.AEAD
}

// New builds a codec from a hex-encoded AES-256 key. An empty key yields a
// passthrough codec that stores bodies in plaintext.
func New(hexKey string) (*Codec, error) {
	if hexKey == "" {
		return &Codec{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode message key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("message key must be 32 bytes (AES-256)")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

func (c *Codec) Enabled() bool { return c.aead != nil }

func (c *Codec) Encrypt(plaintext string) (string, error) {
	if c.aead == nil {
		return plaintext, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Codec) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return "", &DecryptError{Cause: errors.New("missing encryption prefix")}
	}
	if c.aead == nil {
		return "", &DecryptError{Cause: errors.New("no key configured")}
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", &DecryptError{Cause: err}
	}
	if len(raw) < c.aead.NonceSize() {
		return "", &DecryptError{Cause: errors.New("ciphertext too short")}
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &DecryptError{Cause: err}
	}
	return string(plaintext), nil
}

// DecryptOrPassthrough returns legacy plaintext rows unchanged and decrypts
// prefixed rows, failing with DecryptError only when a prefixed row is
// corrupt.
func (c *Codec) DecryptOrPassthrough(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	return c.Decrypt(value)
}
