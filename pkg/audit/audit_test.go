package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/database"
)

func TestCanonicalJSON_PreservesInsertionOrder(t *testing.T) {
	out, err := canonicalJSON([]KV{{"b", 1}, {"a", 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":2}`, out)
}

func TestMergeOrdered_TiesPreferExtraValueKeepBasePosition(t *testing.T) {
	base := []KV{{"actorKind", "USER"}, {"entityId", "x"}}
	extra := []KV{{"entityId", "y"}, {"fileName", "doc.pdf"}}

	merged := mergeOrdered(base, extra)

	require.Len(t, merged, 3)
	assert.Equal(t, KV{"actorKind", "USER"}, merged[0])
	assert.Equal(t, KV{"entityId", "y"}, merged[1], "extra's value wins, base's position is kept")
	assert.Equal(t, KV{"fileName", "doc.pdf"}, merged[2], "new key appended at the end")
}

func TestDecodeOrdered_RoundTripsCanonicalJSON(t *testing.T) {
	pairs := []KV{{"z", "first"}, {"a", "second"}, {"m", 3.0}}
	serialized, err := canonicalJSON(pairs)
	require.NoError(t, err)

	decoded, err := decodeOrdered([]byte(serialized))
	require.NoError(t, err)
	assert.Equal(t, pairs, decoded)
}

// buildChainRows hand-constructs a valid two-entry chain the same way
// Service.Append would, without touching a database, so verifyRows can
// be exercised directly.
func buildChainRows(t *testing.T, svc *Service, entityID uuid.UUID) []*database.AuditLogEntry {
	t.Helper()
	clock := svc.clock.(capability.FixedClock)

	var rows []*database.AuditLogEntry
	prevHash := svc.genesisHash(entityID)
	for i, action := range []string{"CREATE", "INVITE"} {
		metadata := metadataPairs(uuid.Nil, database.ActorUser, uuid.NullUUID{}, EntityDocument, entityID, action, "127.0.0.1", "test-agent")
		serialized, err := canonicalJSON(metadata)
		require.NoError(t, err)
		timestamp := capability.ISOMilli(clock.Now())
		eventHash := hashHex(prevHash + serialized + timestamp)

		rows = append(rows, &database.AuditLogEntry{
			ID:            uuid.New(),
			TenantID:      uuid.Nil,
			ActorKind:     database.ActorUser,
			EntityType:    EntityDocument,
			EntityID:      entityID,
			Action:        action,
			IP:            "127.0.0.1",
			UserAgent:     "test-agent",
			PrevEventHash: prevHash,
			EventHash:     eventHash,
			CreatedAt:     clock.Now(),
		})
		prevHash = eventHash
		_ = i
	}
	return rows
}

func newTestService() *Service {
	return &Service{clock: capability.FixedClock{}, genesisPrefix: DefaultGenesisPrefix}
}

func TestVerifyRows_ValidChain(t *testing.T) {
	svc := newTestService()
	entityID := uuid.New()
	rows := buildChainRows(t, svc, entityID)

	result, err := svc.verifyRows(entityID, rows)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Count)
}

func TestVerifyRows_DetectsHashTampering(t *testing.T) {
	svc := newTestService()
	entityID := uuid.New()
	rows := buildChainRows(t, svc, entityID)
	rows[1].Action = "TAMPERED"

	result, err := svc.verifyRows(entityID, rows)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonHashMismatch, result.Reason)
	assert.Equal(t, rows[1].ID, result.BrokenEventID)
}

func TestVerifyRows_DetectsBrokenLink(t *testing.T) {
	svc := newTestService()
	entityID := uuid.New()
	rows := buildChainRows(t, svc, entityID)
	rows[1].PrevEventHash = "not-the-real-previous-hash"

	result, err := svc.verifyRows(entityID, rows)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonLinkMismatch, result.Reason)
}

func TestVerifyRows_EmptyChainIsValid(t *testing.T) {
	svc := newTestService()
	result, err := svc.verifyRows(uuid.New(), nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 0, result.Count)
}

func TestGenesisHash_DifferentPrefixesDiverge(t *testing.T) {
	entityID := uuid.New()
	a := (&Service{genesisPrefix: "a_"}).genesisHash(entityID)
	b := (&Service{genesisPrefix: "b_"}).genesisHash(entityID)
	assert.NotEqual(t, a, b)
}
