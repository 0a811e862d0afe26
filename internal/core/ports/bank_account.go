package ports

import (
	"RailSettle/internal/core/domain"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// BankAccountRepository defines the persistence operations for bank
// accounts. Updates carry expected-version semantics: the store must
// reject a write whose Version does not match the stored row.
type BankAccountRepository interface {
	// Create saves a new bank account.
	Create(ctx context.Context, acct *domain.BankAccount) error

	// GetByID finds an account by its internal UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error)

	// Update writes the account back, guarded by acct.Version.
	Update(ctx context.Context, acct *domain.BankAccount) error

	// SetVerification transitions the account's verification state.
	SetVerification(ctx context.Context, id uuid.UUID, method domain.VerificationMethod, status domain.VerificationStatus) error
}

// DecryptedBankDetails is the transient plaintext form of vaulted
// account data. It exists only for the duration of a NACHA entry build
// or a negative-list fingerprint and must never be persisted or logged.
type DecryptedBankDetails struct {
	RoutingNumber string `json:"routing_number"`
	AccountNumber string `json:"account_number"`
}

// EncodeBankDetails produces the vault plaintext payload.
func EncodeBankDetails(d DecryptedBankDetails) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeBankDetails parses a vault plaintext payload.
func DecodeBankDetails(plaintext []byte) (DecryptedBankDetails, error) {
	var d DecryptedBankDetails
	if err := json.Unmarshal(plaintext, &d); err != nil {
		return DecryptedBankDetails{}, fmt.Errorf("vault payload is not valid bank details: %w", err)
	}
	return d, nil
}

// SealBankDetails encrypts details into an opaque vault reference
// suitable for BankAccount.VaultRef.
func SealBankDetails(v Vault, d DecryptedBankDetails) (string, error) {
	plaintext, err := EncodeBankDetails(d)
	if err != nil {
		return "", err
	}
	ciphertext, err := v.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("vault encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// OpenVaultRef decrypts a vault reference back into bank details.
// Failures here are fatal to the caller's operation; the plaintext
// must stay transient and unlogged.
func OpenVaultRef(v Vault, ref string) (DecryptedBankDetails, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ref)
	if err != nil {
		return DecryptedBankDetails{}, fmt.Errorf("vault ref is not base64: %w", err)
	}
	plaintext, err := v.Decrypt(ciphertext)
	if err != nil {
		return DecryptedBankDetails{}, fmt.Errorf("vault decrypt: %w", err)
	}
	return DecodeBankDetails(plaintext)
}
