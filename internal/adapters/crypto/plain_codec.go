package crypto

// PlainCodec stores payloads unencrypted. Used when no encryption key is
// configured and in tests that need to inspect stored bytes.
type PlainCodec struct{}

// NewPlainCodec creates a pass-through codec
func NewPlainCodec() *PlainCodec {
	return &PlainCodec{}
}

// Encrypt returns the plaintext unchanged
func (c *PlainCodec) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}

// Decrypt returns the stored bytes unchanged
func (c *PlainCodec) Decrypt(ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	return out, nil
}
