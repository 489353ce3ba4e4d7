package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoutePattern_CollapsesUUIDSegments(t *testing.T) {
	id := uuid.New().String()
	got := routePattern("/documents/" + id + "/audit")
	assert.Equal(t, "/documents/:id/audit", got)
}

func TestRoutePattern_CollapsesLongOpaqueTokens(t *testing.T) {
	token := "aVeryLongOpaqueShareTokenValue1234567890"
	got := routePattern("/sign/" + token + "/commit")
	assert.Equal(t, "/sign/:id/commit", got)
}

func TestRoutePattern_LeavesShortSegmentsAlone(t *testing.T) {
	assert.Equal(t, "/documents/validate-file", routePattern("/documents/validate-file"))
	assert.Equal(t, "/health", routePattern("/health"))
}

func TestLooksOpaque(t *testing.T) {
	assert.True(t, looksOpaque(uuid.New().String()))
	assert.True(t, looksOpaque("xxxxxxxxxxxxxxxxxxxxxxxxxx"))
	assert.False(t, looksOpaque("invite"))
	assert.False(t, looksOpaque("cancel"))
}

func TestCommitOutcome(t *testing.T) {
	assert.Equal(t, "success", commitOutcome(nil))
	assert.Equal(t, "failure", commitOutcome(assertionError{}))
}

type assertionError struct{}

func (assertionError) Error() string { return "boom" }
