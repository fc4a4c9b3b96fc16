package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errCiphertextTooShort = errors.New("ciphertext too short")

// Codec obfuscates the stored credential
type Codec interface {
	Encode(plain string) (string, error)
	Decode(stored string) (string, error)
}

// NewCodec returns a secretbox codec when a secret is configured, base64 otherwise
func NewCodec(secret string) Codec {
	if secret == "" {
		return Base64Codec{}
	}
	return NewSecretboxCodec(secret)
}

// Base64Codec only hides the credential from casual reads
type Base64Codec struct{}

func (Base64Codec) Encode(plain string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(plain)), nil
}

func (Base64Codec) Decode(stored string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("failed to decode credential: %w", err)
	}
	return string(b), nil
}

// SecretboxCodec seals the credential with NaCl secretbox keyed by a server secret
type SecretboxCodec struct {
	key [32]byte
}

// NewSecretboxCodec derives the box key from the secret
func NewSecretboxCodec(secret string) *SecretboxCodec {
	return &SecretboxCodec{key: sha256.Sum256([]byte(secret))}
}

func (c *SecretboxCodec) Encode(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SecretboxCodec) Decode(stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("failed to decode credential: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errCiphertextTooShort
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", errors.New("failed to open credential box")
	}
	return string(plain), nil
}
