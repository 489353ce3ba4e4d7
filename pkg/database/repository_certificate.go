package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CertificateRepository persists Certificate rows — exactly one per
// Document, written at the SIGNED transition (spec §4.5).
type CertificateRepository struct {
	db *sql.DB
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db *sql.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create inserts the Certificate for a freshly finalized Document. The
// certificates table's primary key on document_id rejects a second
// insert for the same document, which backstops the exactly-once finalize
// guarantee at the schema level.
func (r *CertificateRepository) Create(ctx context.Context, q Querier, c *Certificate) error {
	const query = `
		INSERT INTO certificates (document_id, storage_key, sha256)
		VALUES ($1, $2, $3)
		RETURNING issued_at
	`
	if err := q.QueryRowContext(ctx, query, c.DocumentID, c.StorageKey, c.SHA256).Scan(&c.IssuedAt); err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// GetByDocument fetches the Certificate for a Document, if any.
func (r *CertificateRepository) GetByDocument(ctx context.Context, documentID uuid.UUID) (*Certificate, error) {
	const query = `SELECT document_id, storage_key, sha256, issued_at FROM certificates WHERE document_id = $1`
	var c Certificate
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(&c.DocumentID, &c.StorageKey, &c.SHA256, &c.IssuedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &c, nil
}
