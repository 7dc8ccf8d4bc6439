package memory

// PayloadCodec encrypts memory payloads at rest. It is injected into the
// store rather than hard-wired so the core can run with a no-op codec in
// tests and a real cipher in deployment.
type PayloadCodec interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
