package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// DocumentRepository persists Document rows.
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new Document.
func (r *DocumentRepository) Create(ctx context.Context, q Querier, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	const query = `
		INSERT INTO documents (id, tenant_id, owner_id, title, mime_type, size, storage_key, sha256, status, deadline_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := q.QueryRowContext(ctx, query,
		d.ID, d.TenantID, d.OwnerID, d.Title, d.MimeType, d.Size, d.StorageKey, d.SHA256, d.Status, d.DeadlineAt,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get fetches a Document by id using the given Querier (DB or Tx).
func (r *DocumentRepository) Get(ctx context.Context, q Querier, id uuid.UUID) (*Document, error) {
	const query = `
		SELECT id, tenant_id, owner_id, title, mime_type, size, storage_key, sha256, status, deadline_at, created_at
		FROM documents WHERE id = $1
	`
	return scanDocument(q.QueryRowContext(ctx, query, id))
}

// GetByID is a convenience wrapper over Get against the pool directly.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return r.Get(ctx, r.db, id)
}

// GetForUpdate fetches a Document and locks its row until the enclosing
// transaction ends, so concurrent Signer commits serialize on it (spec
// §4.4 concurrency contract).
func (r *DocumentRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Document, error) {
	const query = `
		SELECT id, tenant_id, owner_id, title, mime_type, size, storage_key, sha256, status, deadline_at, created_at
		FROM documents WHERE id = $1 FOR UPDATE
	`
	return scanDocument(tx.QueryRowContext(ctx, query, id))
}

// GetBySHA256 finds the Document whose content hash matches — the
// Validator's sole lookup (spec §4.6).
func (r *DocumentRepository) GetBySHA256(ctx context.Context, sha256 string) (*Document, error) {
	const query = `
		SELECT id, tenant_id, owner_id, title, mime_type, size, storage_key, sha256, status, deadline_at, created_at
		FROM documents WHERE sha256 = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, query, sha256))
}

func scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.TenantID, &d.OwnerID, &d.Title, &d.MimeType, &d.Size, &d.StorageKey, &d.SHA256, &d.Status, &d.DeadlineAt, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}

// UpdateStatus transitions a Document's status.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status DocumentStatus) error {
	const query = `UPDATE documents SET status = $2 WHERE id = $1`
	res, err := q.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return mustAffectOne(res)
}

// FinalizeStorage updates a Document's storage key, sha256, and status
// together, as the last write of the finalize step (spec §4.5).
func (r *DocumentRepository) FinalizeStorage(ctx context.Context, q Querier, id uuid.UUID, storageKey, sha256 string, status DocumentStatus) error {
	const query = `UPDATE documents SET storage_key = $2, sha256 = $3, status = $4 WHERE id = $1`
	res, err := q.ExecContext(ctx, query, id, storageKey, sha256, status)
	if err != nil {
		return fmt.Errorf("finalize document storage: %w", err)
	}
	return mustAffectOne(res)
}

// ListNearingDeadline returns READY/PARTIALLY_SIGNED documents whose
// deadline falls within the given horizon, for the reminder job.
func (r *DocumentRepository) ListNearingDeadline(ctx context.Context, within sql.NullTime) ([]*Document, error) {
	const query = `
		SELECT id, tenant_id, owner_id, title, mime_type, size, storage_key, sha256, status, deadline_at, created_at
		FROM documents
		WHERE status IN ('READY', 'PARTIALLY_SIGNED') AND deadline_at IS NOT NULL AND deadline_at <= $1
	`
	rows, err := r.db.QueryContext(ctx, query, within)
	if err != nil {
		return nil, fmt.Errorf("list documents nearing deadline: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.TenantID, &d.OwnerID, &d.Title, &d.MimeType, &d.Size, &d.StorageKey, &d.SHA256, &d.Status, &d.DeadlineAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func mustAffectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
