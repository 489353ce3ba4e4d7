// Package apperr defines the sentinel error kinds shared across the
// signing pipeline. Services return these directly (or wrapped with
// fmt.Errorf("...: %w", ...)); the HTTP layer recovers them with
// errors.Is to choose a status code.
package apperr

import "errors"

var (
	// ErrNotFound means the requested entity does not exist, or the
	// caller is not entitled to see that it exists.
	ErrNotFound = errors.New("not found")

	// ErrInvalidToken means a share-token or OTP challenge failed to
	// resolve to a usable record.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrOtpExpired means the matching OTP row exists but is past its
	// expiry.
	ErrOtpExpired = errors.New("otp expired")

	// ErrOtpWrong means an OTP row was found and is not expired, but
	// the supplied code did not match its hash.
	ErrOtpWrong = errors.New("otp incorrect")

	// ErrAlreadyTerminal means a state transition was attempted against
	// a Document or Signer already in a terminal state.
	ErrAlreadyTerminal = errors.New("entity already in a terminal state")

	// ErrLimitExceeded means a plan or quota limit blocked the operation.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrIntegrity means an internal invariant was violated (e.g. a
	// stored sha256 no longer matches the blob on disk). Callers must
	// log this with full detail; it is never expected in normal
	// operation.
	ErrIntegrity = errors.New("integrity violation")

	// ErrValidation means the caller supplied a malformed request.
	ErrValidation = errors.New("validation error")
)

// Kind classifies an error for transport-layer status mapping. It walks
// errors.Is against each sentinel in a fixed priority order so that a
// wrapped error picks the most specific applicable kind.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidToken,
		ErrOtpExpired,
		ErrOtpWrong,
		ErrAlreadyTerminal,
		ErrLimitExceeded,
		ErrIntegrity,
		ErrValidation,
		ErrNotFound,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
