package security

import (
	"bytes"
	"crypto/rand"
	"testing"

	"RailSettle/internal/core/ports"

	"github.com/rs/zerolog"
)

// helper function to generate a valid key
func generateKey(length int) []byte {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

func TestAESVault_EncryptDecrypt_Roundtrip(t *testing.T) {
	nopLogger := zerolog.Nop()

	// Test cases for both AES-128 and AES-256
	testCases := []struct {
		name    string
		key     []byte
		payload []byte
	}{
		{
			name:    "AES-128 (16-byte key)",
			key:     generateKey(16),
			payload: []byte(`{"routing_number":"021000021","account_number":"123456789012"}`),
		},
		{
			name:    "AES-256 (32-byte key)",
			key:     generateKey(32),
			payload: []byte(`{"routing_number":"091000019","account_number":"987654321"}`),
		},
		{
			name:    "Empty Payload",
			key:     generateKey(32),
			payload: []byte(""),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vault, err := NewAESVault(tc.key, &nopLogger)
			if err != nil {
				t.Fatalf("Failed to create vault: %v", err)
			}

			ciphertext, err := vault.Encrypt(tc.payload)
			if err != nil {
				t.Fatalf("Encryption failed: %v", err)
			}

			if bytes.Equal(ciphertext, tc.payload) {
				t.Fatal("Encryption did not change the data")
			}

			plaintext, err := vault.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decryption failed: %v", err)
			}

			if !bytes.Equal(plaintext, tc.payload) {
				t.Fatalf("Decrypted data does not match original. \nGot: %s\nWant: %s",
					string(plaintext), string(tc.payload))
			}
		})
	}
}

func TestAESVault_Decrypt_Tampered(t *testing.T) {
	nopLogger := zerolog.Nop()
	key := generateKey(32)
	payload := []byte("do not tamper with this")

	vault, err := NewAESVault(key, &nopLogger)
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}

	ciphertext, err := vault.Encrypt(payload)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	// Tamper with the ciphertext (flip a bit)
	ciphertext[len(ciphertext)-1] = ^ciphertext[len(ciphertext)-1]

	_, err = vault.Decrypt(ciphertext)
	if err == nil {
		t.Fatal("Decryption succeeded on tampered data, but it should have failed.")
	}
	t.Logf("Got expected decryption error: %v", err)
}

func TestNewAESVault_InvalidKey(t *testing.T) {
	nopLogger := zerolog.Nop()
	_, err := NewAESVault([]byte("badkey"), &nopLogger)
	if err == nil {
		t.Fatal("Vault creation should fail with invalid key length")
	}
	t.Logf("Got expected creation error: %v", err)
}

func TestAESVault_SealOpenBankDetails(t *testing.T) {
	nopLogger := zerolog.Nop()
	vault, err := NewAESVault(generateKey(32), &nopLogger)
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}

	details := ports.DecryptedBankDetails{
		RoutingNumber: "021000021",
		AccountNumber: "123456789012",
	}

	ref, err := ports.SealBankDetails(vault, details)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains([]byte(ref), []byte(details.AccountNumber)) {
		t.Fatal("Vault reference leaks the raw account number")
	}

	got, err := ports.OpenVaultRef(vault, ref)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != details {
		t.Fatalf("Opened details do not match. Got: %+v Want: %+v", got, details)
	}
}
