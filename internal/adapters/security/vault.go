package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"RailSettle/internal/core/ports"

	"github.com/rs/zerolog"
)

// aesVault implements the Vault port using AES-GCM. Bank details cross
// this boundary exactly once in each direction: sealed on intake,
// opened for file generation and negative-list checks.
type aesVault struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

var _ ports.Vault = (*aesVault)(nil)

// NewAESVault creates the vault from a raw encryption key.
func NewAESVault(encryptionKey []byte, baseLogger *zerolog.Logger) (ports.Vault, error) {
	if len(encryptionKey) != 16 && len(encryptionKey) != 32 {
		return nil, errors.New("encryptionKey must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "vault").Logger()
	log.Info().Msg("Vault initialized")

	return &aesVault{gcm: gcm, log: log}, nil
}

// Encrypt seals plaintext with a fresh random nonce prepended to the
// ciphertext.
func (v *aesVault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		v.log.Error().Err(err).Msg("Failed to generate nonce")
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return v.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (v *aesVault) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := v.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext is too short")
	}

	nonce, actualCiphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := v.gcm.Open(nil, nonce, actualCiphertext, nil)
	if err != nil {
		// This can happen if data is tampered with
		v.log.Warn().Err(err).Msg("Failed to decrypt ciphertext (tampered or corrupt?)")
		return nil, fmt.Errorf("could not decrypt: %w", err)
	}

	return plaintext, nil
}
