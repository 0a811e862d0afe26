package ports

// Vault defines the interface for encrypting and decrypting raw
// account and routing numbers. This allows us to swap the
// implementation (e.g., from AES to an external KMS) without changing
// any business logic that uses it. The symmetric key is supplied from
// outside; the core never touches it directly.
type Vault interface {
	// Encrypt takes a plaintext and returns a secure, encrypted ciphertext.
	Encrypt(plaintext []byte) (ciphertext []byte, err error)

	// Decrypt takes a ciphertext and returns the original plaintext.
	// Failures here are always fatal to the enclosing operation.
	Decrypt(ciphertext []byte) (plaintext []byte, err error)
}
