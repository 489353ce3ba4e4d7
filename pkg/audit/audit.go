// Package audit implements the append-only, hash-chained evidentiary
// log described in spec §4.2: every Append extends one entity's chain
// by computing a deterministic eventHash over the previous hash, an
// order-preserving canonical JSON encoding of the entry, and the
// write-time timestamp. The Verifier recomputes that same chain and
// reports the first point of divergence, if any.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/database"
)

// DefaultGenesisPrefix seeds the first entry of every chain absent an
// override. Configurable via CHAIN_GENESIS_PREFIX (spec §6 configuration
// table).
const DefaultGenesisPrefix = "genesis_block_"

// Entity types a chain can be keyed by. A Document's chain and each of
// its Signers' chains are distinct chains (spec §3 Relationships).
const (
	EntityDocument = "DOCUMENT"
	EntitySigner   = "SIGNER"
)

// Service appends to and verifies audit chains.
type Service struct {
	repo          *database.AuditRepository
	clock         capability.Clock
	genesisPrefix string
}

// New constructs an audit Service. genesisPrefix seeds every chain's
// first prevEventHash; pass "" to use DefaultGenesisPrefix.
func New(repo *database.AuditRepository, clock capability.Clock, genesisPrefix string) *Service {
	if genesisPrefix == "" {
		genesisPrefix = DefaultGenesisPrefix
	}
	return &Service{repo: repo, clock: clock, genesisPrefix: genesisPrefix}
}

// AppendInput carries everything needed to extend one entity's chain.
type AppendInput struct {
	TenantID   uuid.UUID
	ActorKind  database.ActorKind
	ActorID    uuid.NullUUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	IP         string
	UserAgent  string
	Payload    Payload
}

// Append extends entityID's chain by one entry, inside tx. tx must be
// part of a transaction begun at sql.LevelSerializable (Client.WithTx);
// the row lock taken by AuditRepository.LastHashForEntity is what
// prevents two concurrent appends on the same entity from forking the
// chain (spec §4.2 ordering guarantee).
func (s *Service) Append(ctx context.Context, tx *sql.Tx, in AppendInput) (*database.AuditLogEntry, error) {
	prevEventHash, err := s.repo.LastHashForEntity(ctx, tx, in.EntityID)
	if err != nil {
		return nil, fmt.Errorf("load previous audit hash: %w", err)
	}
	if prevEventHash == "" {
		prevEventHash = s.genesisHash(in.EntityID)
	}

	now := s.clock.Now()
	timestamp := capability.ISOMilli(now)

	metadata := metadataPairs(in.TenantID, in.ActorKind, in.ActorID, in.EntityType, in.EntityID, in.Action, in.IP, in.UserAgent)
	payloadRecord := mergeOrdered(metadata, []KV(in.Payload))

	serialized, err := canonicalJSON(payloadRecord)
	if err != nil {
		return nil, fmt.Errorf("canonicalize audit payload: %w", err)
	}

	eventHash := hashHex(prevEventHash + serialized + timestamp)

	payloadJSON, err := payloadToJSONObject(in.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}

	entry := &database.AuditLogEntry{
		TenantID:      in.TenantID,
		ActorKind:     in.ActorKind,
		ActorID:       in.ActorID,
		EntityType:    in.EntityType,
		EntityID:      in.EntityID,
		Action:        in.Action,
		IP:            in.IP,
		UserAgent:     in.UserAgent,
		PayloadJSON:   payloadJSON,
		PrevEventHash: prevEventHash,
		EventHash:     eventHash,
		CreatedAt:     now,
	}
	if err := s.repo.Insert(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

// metadataPairs builds the fixed-order metadata prefix of a
// payloadRecord, matching spec §4.2 step 4's field order exactly.
//
// tenantId is deliberately excluded: the spec's payloadRecord lists
// actorKind, actorId, entityType, entityId, action, ip, userAgent only.
func metadataPairs(tenantID uuid.UUID, actorKind database.ActorKind, actorID uuid.NullUUID, entityType string, entityID uuid.UUID, action, ip, userAgent string) []KV {
	var actorIDValue any
	if actorID.Valid {
		actorIDValue = actorID.UUID.String()
	}
	return []KV{
		{"actorKind", string(actorKind)},
		{"actorId", actorIDValue},
		{"entityType", entityType},
		{"entityId", entityID.String()},
		{"action", action},
		{"ip", ip},
		{"userAgent", userAgent},
	}
}

func (s *Service) genesisHash(entityID uuid.UUID) string {
	return hashHex(s.genesisPrefix + entityID.String())
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
