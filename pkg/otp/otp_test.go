package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/internal/testdb"
	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/database"
)

func newStore(t *testing.T, clock capability.Clock) (*Store, *database.Client) {
	t.Helper()
	client := testdb.Open(t)
	repo := database.NewOtpRepository(client.DB())
	return New(repo, clock, capability.SystemRNG{}, 10*time.Minute, 4), client
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	clock := capability.FixedClock{At: time.Now().UTC()}
	store, client := newStore(t, clock)

	code, err := store.Issue(t.Context(), client.DB(), "signer@example.com", database.ChannelEmail)
	require.NoError(t, err)
	require.Len(t, code, CodeLength)

	err = store.Verify(t.Context(), client.DB(), []string{"signer@example.com"}, code)
	assert.NoError(t, err)
}

func TestVerify_MatchesAcrossChannels(t *testing.T) {
	clock := capability.FixedClock{At: time.Now().UTC()}
	store, client := newStore(t, clock)

	code, err := store.Issue(t.Context(), client.DB(), "+15555550100", database.ChannelWhatsApp)
	require.NoError(t, err)

	// Verified against a different contact string for the same signer
	// (email) alongside the phone it was actually issued to.
	err = store.Verify(t.Context(), client.DB(), []string{"signer@example.com", "+15555550100"}, code)
	assert.NoError(t, err)
}

func TestVerify_WrongCode(t *testing.T) {
	clock := capability.FixedClock{At: time.Now().UTC()}
	store, client := newStore(t, clock)

	_, err := store.Issue(t.Context(), client.DB(), "signer@example.com", database.ChannelEmail)
	require.NoError(t, err)

	err = store.Verify(t.Context(), client.DB(), []string{"signer@example.com"}, "000000")
	assert.ErrorIs(t, err, apperr.ErrOtpWrong)
}

func TestVerify_Expired(t *testing.T) {
	issued := time.Now().UTC().Add(-time.Hour)
	clock := capability.FixedClock{At: issued}
	store, client := newStore(t, clock)

	code, err := store.Issue(t.Context(), client.DB(), "signer@example.com", database.ChannelEmail)
	require.NoError(t, err)

	store.clock = capability.FixedClock{At: issued.Add(time.Hour)}
	err = store.Verify(t.Context(), client.DB(), []string{"signer@example.com"}, code)
	assert.ErrorIs(t, err, apperr.ErrOtpExpired)
}

func TestVerify_OneShot(t *testing.T) {
	clock := capability.FixedClock{At: time.Now().UTC()}
	store, client := newStore(t, clock)

	code, err := store.Issue(t.Context(), client.DB(), "signer@example.com", database.ChannelEmail)
	require.NoError(t, err)

	require.NoError(t, store.Verify(t.Context(), client.DB(), []string{"signer@example.com"}, code))

	err = store.Verify(t.Context(), client.DB(), []string{"signer@example.com"}, code)
	assert.ErrorIs(t, err, apperr.ErrOtpExpired, "a redeemed code no longer resolves to a live row")
}
