package capability

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes SHA-256 digests. It is pure and stateless, so a single
// instance is shared across the process — it carries no state to inject
// differently between tests and production.
type Hasher struct{}

// Sum returns the raw 32-byte SHA-256 digest of data.
func (Hasher) Sum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SumHex returns the lowercase-hex SHA-256 digest of data.
func (Hasher) SumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Concat hashes the concatenation of every byte slice given, in order.
func (h Hasher) Concat(parts ...[]byte) [32]byte {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return h.Sum(buf)
}

// ConcatHex is Concat, hex-encoded.
func (h Hasher) ConcatHex(parts ...[]byte) string {
	sum := h.Concat(parts...)
	return hex.EncodeToString(sum[:])
}
