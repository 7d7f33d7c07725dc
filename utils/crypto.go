package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrCipherTextTooShort = errors.New("cipher text too short")

// Cipher seals OAuth tokens with AES-256-GCM before they reach the database.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32 byte key.
func NewCipher(key string) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("NewCipher: key must be 32 characters long for AES-256, got %d", len(key))
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("NewCipher: failed to create cipher block: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("NewCipher: failed to create GCM block: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt returns base64(nonce || ciphertext). Empty input stays empty.
func (c *Cipher) Encrypt(plainText string) (string, error) {
	if plainText == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("Encrypt: failed to generate nonce: %w", err)
	}

	cipherText := c.aead.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	cipherData, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("Decrypt: failed to base64 decode: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(cipherData) < nonceSize {
		return "", ErrCipherTextTooShort
	}

	nonce, cipherText := cipherData[:nonceSize], cipherData[nonceSize:]
	plainText, err := c.aead.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", fmt.Errorf("Decrypt: failed to decrypt: %w", err)
	}

	return string(plainText), nil
}
