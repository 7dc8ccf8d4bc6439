package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// NormalizePayload renders a payload into its canonical byte form used for
// hashing and encryption. JSON marshalling sorts object keys, so two payloads
// with the same fields in different order normalize identically.
func NormalizePayload(payload map[string]interface{}) ([]byte, error) {
	if len(payload) == 0 {
		return nil, &ErrInvalidRecord{Field: "payload", Reason: "payload cannot be empty"}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize payload: %w", err)
	}
	return data, nil
}

// ContentHash computes the deduplication hash for a memory: sha256 over the
// kind and the normalized plaintext payload. Two records for the same player
// with the same hash are the same observation replayed.
func ContentHash(kind Kind, normalized []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{':'})
	h.Write(normalized)
	return hex.EncodeToString(h.Sum(nil))
}
