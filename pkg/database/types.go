// Types map directly onto the tables created by migrations/001_initial_schema.sql,
// mirroring the data model in spec §3.
package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is a User's coarse authority level.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleUser       Role = "USER"
)

// Tenant scopes every other row except AuditLog chain keys.
type Tenant struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// User belongs to exactly one Tenant; Email is globally unique.
type User struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Email     string    `db:"email"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// DocumentStatus is the lifecycle state of a Document.
type DocumentStatus string

const (
	DocumentDraft           DocumentStatus = "DRAFT"
	DocumentReady           DocumentStatus = "READY"
	DocumentPartiallySigned DocumentStatus = "PARTIALLY_SIGNED"
	DocumentSigned          DocumentStatus = "SIGNED"
	DocumentCancelled       DocumentStatus = "CANCELLED"
	DocumentExpired         DocumentStatus = "EXPIRED"
)

// IsTerminal reports whether status is one from which no further
// transition is possible (spec §3: "terminal statuses ... are immutable").
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentSigned || s == DocumentCancelled || s == DocumentExpired
}

// Document is the uploaded PDF under signature.
type Document struct {
	ID         uuid.UUID      `db:"id"`
	TenantID   uuid.UUID      `db:"tenant_id"`
	OwnerID    uuid.UUID      `db:"owner_id"`
	Title      string         `db:"title"`
	MimeType   string         `db:"mime_type"`
	Size       int64          `db:"size"`
	StorageKey string         `db:"storage_key"`
	SHA256     string         `db:"sha256"`
	Status     DocumentStatus `db:"status"`
	DeadlineAt sql.NullTime   `db:"deadline_at"`
	CreatedAt  time.Time      `db:"created_at"`
}

// SignerStatus is the lifecycle state of a Signer (spec §4.4).
type SignerStatus string

const (
	SignerPending  SignerStatus = "PENDING"
	SignerViewed   SignerStatus = "VIEWED"
	SignerSigned   SignerStatus = "SIGNED"
	SignerDeclined SignerStatus = "DECLINED"
)

// AuthChannel is a delivery channel for OTP codes and invitations.
type AuthChannel string

const (
	ChannelEmail    AuthChannel = "EMAIL"
	ChannelWhatsApp AuthChannel = "WHATSAPP"
)

// Signer is a single invited party on a Document.
type Signer struct {
	ID                    uuid.UUID       `db:"id"`
	DocumentID            uuid.UUID       `db:"document_id"`
	Name                  string          `db:"name"`
	Email                 string          `db:"email"`
	Phone                 sql.NullString  `db:"phone"`
	CPF                   sql.NullString  `db:"cpf"`
	Qualification         sql.NullString  `db:"qualification"`
	AuthChannels          []AuthChannel   `db:"auth_channels"`
	Order                 int             `db:"order"`
	Status                SignerStatus    `db:"status"`
	SignedAt              sql.NullTime    `db:"signed_at"`
	SignatureHash         sql.NullString  `db:"signature_hash"`
	SignatureArtefactPath sql.NullString  `db:"signature_artefact_path"`
	SignaturePositionPage sql.NullInt64   `db:"signature_position_page"`
	SignaturePositionX    sql.NullFloat64 `db:"signature_position_x"`
	SignaturePositionY    sql.NullFloat64 `db:"signature_position_y"`
	CreatedAt             time.Time       `db:"created_at"`
}

// ShareToken is the weak, lookup-only reference from a Signer to its
// invite link. The plaintext token is never persisted.
type ShareToken struct {
	DocumentID uuid.UUID    `db:"document_id"`
	SignerID   uuid.UUID    `db:"signer_id"`
	TokenHash  string       `db:"token_hash"`
	ExpiresAt  time.Time    `db:"expires_at"`
	ConsumedAt sql.NullTime `db:"consumed_at"`
}

// OtpCode is a short-lived, one-shot challenge code.
type OtpCode struct {
	ID        uuid.UUID   `db:"id"`
	Recipient string      `db:"recipient"`
	Channel   AuthChannel `db:"channel"`
	CodeHash  string      `db:"code_hash"`
	ExpiresAt time.Time   `db:"expires_at"`
	Context   string      `db:"context"`
	CreatedAt time.Time   `db:"created_at"`
}

// ActorKind identifies who caused an AuditLog entry.
type ActorKind string

const (
	ActorUser   ActorKind = "USER"
	ActorSigner ActorKind = "SIGNER"
	ActorSystem ActorKind = "SYSTEM"
)

// AuditLogEntry is one append-only, hash-chained evidentiary record.
type AuditLogEntry struct {
	ID            uuid.UUID       `db:"id"`
	TenantID      uuid.UUID       `db:"tenant_id"`
	ActorKind     ActorKind       `db:"actor_kind"`
	ActorID       uuid.NullUUID   `db:"actor_id"`
	EntityType    string          `db:"entity_type"`
	EntityID      uuid.UUID       `db:"entity_id"`
	Action        string          `db:"action"`
	IP            string          `db:"ip"`
	UserAgent     string          `db:"user_agent"`
	PayloadJSON   json.RawMessage `db:"payload_json"`
	PrevEventHash string          `db:"prev_event_hash"`
	EventHash     string          `db:"event_hash"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Certificate is written exactly once per Document, at the SIGNED
// transition.
type Certificate struct {
	DocumentID uuid.UUID `db:"document_id"`
	StorageKey string    `db:"storage_key"`
	SHA256     string    `db:"sha256"`
	IssuedAt   time.Time `db:"issued_at"`
}
