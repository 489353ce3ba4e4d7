package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_DirectSentinel(t *testing.T) {
	assert.Equal(t, ErrNotFound, Kind(ErrNotFound))
	assert.Equal(t, ErrOtpWrong, Kind(ErrOtpWrong))
}

func TestKind_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("lookup document: %w", ErrNotFound)
	assert.Equal(t, ErrNotFound, Kind(wrapped))
}

func TestKind_Unrecognized(t *testing.T) {
	assert.Nil(t, Kind(errors.New("some other failure")))
	assert.Nil(t, Kind(nil))
}

func TestKind_PriorityOrder(t *testing.T) {
	// A multi-wrap combining ErrInvalidToken and ErrNotFound should
	// resolve to the higher-priority kind.
	wrapped := errors.Join(ErrInvalidToken, ErrNotFound)
	assert.Equal(t, ErrInvalidToken, Kind(wrapped))
}
