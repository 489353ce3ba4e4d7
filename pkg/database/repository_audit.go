package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AuditRepository persists AuditLogEntry rows. Entries are append-only:
// there is no Update or Delete.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// LastHashForEntity returns the event_hash of the most recent AuditLog
// entry in entityID's chain, locking that row (or, if the entity has no
// entries yet, locking nothing — the caller's genesis hash then stands
// unchallenged) so two concurrent Appends on the same entity cannot both
// read the same prevEventHash and fork the chain (spec §4.2 step 1-2,
// ordering guarantee in §4.2/§4.4).
//
// tx must be a transaction begun at sql.LevelSerializable; Append always
// calls this from within Client.WithTx.
func (r *AuditRepository) LastHashForEntity(ctx context.Context, tx *sql.Tx, entityID uuid.UUID) (string, error) {
	const query = `
		SELECT event_hash FROM audit_log
		WHERE entity_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`
	var hash string
	err := tx.QueryRowContext(ctx, query, entityID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get last audit hash: %w", err)
	}
	return hash, nil
}

// Insert appends a fully-hashed AuditLogEntry. e.CreatedAt and
// e.EventHash must already be set by the caller (pkg/audit) before this
// is called: created_at is itself part of the hashed payload (spec
// §4.2 step 6), so it has to be fixed before, not during, the write.
//
// payload_json is a JSON column, not JSONB: Postgres stores JSON as the
// literal input text and returns it unchanged, whereas jsonb reorders
// object keys on write. e.PayloadJSON must already be the exact
// canonical-ordered bytes pkg/audit hashed, and ListByEntity/ListByTenant
// must read the same bytes back for decodeOrdered to reproduce that hash.
func (r *AuditRepository) Insert(ctx context.Context, q Querier, e *AuditLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.PayloadJSON == nil {
		e.PayloadJSON = json.RawMessage("{}")
	}
	const query = `
		INSERT INTO audit_log (id, tenant_id, actor_kind, actor_id, entity_type, entity_id, action, ip, user_agent, payload_json, prev_event_hash, event_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := q.ExecContext(ctx, query,
		e.ID, e.TenantID, e.ActorKind, e.ActorID, e.EntityType, e.EntityID, e.Action, e.IP, e.UserAgent,
		e.PayloadJSON, e.PrevEventHash, e.EventHash, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns every AuditLog entry for one entity (a Document or
// a Signer), in chain order, for display and for scoped chain
// verification.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*AuditLogEntry, error) {
	const query = auditSelectColumns + ` WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries by entity: %w", err)
	}
	return scanAuditRows(rows)
}

// ListByTenant returns every AuditLog entry for a tenant, in chain order —
// the full chain a Chain Verifier re-hashes end to end.
func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*AuditLogEntry, error) {
	const query = auditSelectColumns + ` WHERE tenant_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries by tenant: %w", err)
	}
	return scanAuditRows(rows)
}

const auditSelectColumns = `
	SELECT id, tenant_id, actor_kind, actor_id, entity_type, entity_id, action, ip, user_agent,
		payload_json, prev_event_hash, event_hash, created_at
	FROM audit_log
`

func scanAuditRows(rows *sql.Rows) ([]*AuditLogEntry, error) {
	defer rows.Close()
	var out []*AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorKind, &e.ActorID, &e.EntityType, &e.EntityID, &e.Action, &e.IP, &e.UserAgent,
			&e.PayloadJSON, &e.PrevEventHash, &e.EventHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
