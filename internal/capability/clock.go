// Package capability provides the small set of injectable, stateless
// capabilities (Clock, RNG, Hasher) that the rest of the service depends
// on instead of reaching for time.Now, crypto/rand or crypto/sha256
// directly. Per the design notes, these are configuration, not global
// singletons: every constructor takes one explicitly.
package capability

import "time"

// Clock supplies the current time. Production code uses SystemClock;
// tests use a FixedClock so that timestamp-dependent hashes (signature
// hash, audit eventHash) are reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall-clock implementation.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Useful in tests that need
// to assert an exact canonical timestamp.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (f FixedClock) Now() time.Time {
	return f.At
}

// ISOMilli formats t as the canonical UTC, millisecond-precision
// ISO-8601 string used both when computing an audit eventHash and when
// round-tripping createdAt back out of storage (spec §4.2, §9).
func ISOMilli(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
