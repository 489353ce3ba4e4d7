package capability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := FixedClock{At: at}
	assert.Equal(t, at, c.Now())
	assert.Equal(t, at, c.Now(), "FixedClock never advances")
}

func TestISOMilli(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	assert.Equal(t, "2026-01-02T03:04:05.006Z", ISOMilli(at))
}

func TestSystemRNG_Bytes(t *testing.T) {
	rng := SystemRNG{}
	a, err := rng.Bytes(16)
	require.NoError(t, err)
	b, err := rng.Bytes(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b, "two draws should not collide")
}

func TestSystemRNG_Digits(t *testing.T) {
	rng := SystemRNG{}
	for i := 0; i < 50; i++ {
		code, err := rng.Digits(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestSystemRNG_Digits_RejectsNonPositive(t *testing.T) {
	rng := SystemRNG{}
	_, err := rng.Digits(0)
	assert.Error(t, err)
}

func TestHasher_SumHex(t *testing.T) {
	h := Hasher{}
	assert.Equal(t, 64, len(h.SumHex([]byte("hello"))))
	assert.Equal(t, h.SumHex([]byte("hello")), h.SumHex([]byte("hello")))
	assert.NotEqual(t, h.SumHex([]byte("hello")), h.SumHex([]byte("world")))
}

func TestHasher_Concat(t *testing.T) {
	h := Hasher{}
	combined := h.ConcatHex([]byte("a"), []byte("b"))
	separate := h.SumHex([]byte("ab"))
	assert.Equal(t, separate, combined, "Concat hashes parts joined, not hashed independently")
}
