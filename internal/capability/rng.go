package capability

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RNG supplies cryptographically strong randomness for share tokens and
// OTP codes.
type RNG interface {
	// Bytes returns n cryptographically random bytes.
	Bytes(n int) ([]byte, error)
	// Digits returns a decimal string of exactly n digits with no
	// leading zero, drawn uniformly over [10^(n-1), 10^n) by a single
	// crypto/rand draw (rand.Int, which has no modulo bias).
	Digits(n int) (string, error)
}

// SystemRNG reads from crypto/rand.
type SystemRNG struct{}

// Bytes returns n random bytes read from crypto/rand.
func (SystemRNG) Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}

// Digits returns an n-digit decimal string, e.g. a 6-digit OTP code
// uniform over [100000, 999999] when n=6.
func (SystemRNG) Digits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("digit count must be positive, got %d", n)
	}
	low := pow10(n - 1)
	span := pow10(n) - low
	v, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("draw otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", n, low+v.Int64()), nil
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
