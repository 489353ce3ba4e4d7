package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SignerRepository persists Signer rows.
type SignerRepository struct {
	db *sql.DB
}

// NewSignerRepository constructs a SignerRepository.
func NewSignerRepository(db *sql.DB) *SignerRepository {
	return &SignerRepository{db: db}
}

// Create inserts a new Signer in PENDING status.
func (r *SignerRepository) Create(ctx context.Context, q Querier, s *Signer) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	channels := make(pq.StringArray, len(s.AuthChannels))
	for i, c := range s.AuthChannels {
		channels[i] = string(c)
	}
	const query = `
		INSERT INTO signers (id, document_id, name, email, phone, cpf, qualification, auth_channels, "order", status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := q.QueryRowContext(ctx, query,
		s.ID, s.DocumentID, s.Name, s.Email, s.Phone, s.CPF, s.Qualification, channels, s.Order, s.Status,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert signer: %w", err)
	}
	return nil
}

// Get fetches a Signer by id using the given Querier.
func (r *SignerRepository) Get(ctx context.Context, q Querier, id uuid.UUID) (*Signer, error) {
	const query = signerSelectColumns + ` FROM signers WHERE id = $1`
	return scanSigner(q.QueryRowContext(ctx, query, id))
}

// GetForUpdate fetches a Signer and locks its row for the enclosing
// transaction, used during Commit.
func (r *SignerRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Signer, error) {
	const query = signerSelectColumns + ` FROM signers WHERE id = $1 FOR UPDATE`
	return scanSigner(tx.QueryRowContext(ctx, query, id))
}

// ListByDocument returns every Signer on a Document ordered by invite order.
func (r *SignerRepository) ListByDocument(ctx context.Context, q Querier, documentID uuid.UUID) ([]*Signer, error) {
	const query = signerSelectColumns + ` FROM signers WHERE document_id = $1 ORDER BY "order" ASC`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list signers: %w", err)
	}
	defer rows.Close()

	var out []*Signer
	for rows.Next() {
		s, err := scanSignerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByDocumentForUpdate is ListByDocument with row locks held, used by
// Commit to make the "are all signers terminal" read consistent with the
// write that follows it in the same transaction.
func (r *SignerRepository) ListByDocumentForUpdate(ctx context.Context, tx *sql.Tx, documentID uuid.UUID) ([]*Signer, error) {
	const query = signerSelectColumns + ` FROM signers WHERE document_id = $1 ORDER BY "order" ASC FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list signers for update: %w", err)
	}
	defer rows.Close()

	var out []*Signer
	for rows.Next() {
		s, err := scanSignerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkViewed transitions PENDING -> VIEWED. It is a no-op (not an error)
// if the Signer is already past PENDING.
func (r *SignerRepository) MarkViewed(ctx context.Context, q Querier, id uuid.UUID) error {
	const query = `UPDATE signers SET status = 'VIEWED' WHERE id = $1 AND status = 'PENDING'`
	_, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark signer viewed: %w", err)
	}
	return nil
}

// Identify updates a Signer's optional CPF/phone fields. Empty strings
// leave the existing stored value untouched.
func (r *SignerRepository) Identify(ctx context.Context, q Querier, id uuid.UUID, cpf, phone string) error {
	const query = `
		UPDATE signers
		SET cpf = COALESCE(NULLIF($2, ''), cpf), phone = COALESCE(NULLIF($3, ''), phone)
		WHERE id = $1
	`
	res, err := q.ExecContext(ctx, query, id, cpf, phone)
	if err != nil {
		return fmt.Errorf("identify signer: %w", err)
	}
	return mustAffectOne(res)
}

// SavePosition records where the signer chose to place their stamp.
func (r *SignerRepository) SavePosition(ctx context.Context, q Querier, id uuid.UUID, page int, x, y float64) error {
	const query = `
		UPDATE signers
		SET signature_position_page = $2, signature_position_x = $3, signature_position_y = $4
		WHERE id = $1
	`
	res, err := q.ExecContext(ctx, query, id, page, x, y)
	if err != nil {
		return fmt.Errorf("save signer position: %w", err)
	}
	return mustAffectOne(res)
}

// Commit marks a Signer SIGNED with its signature artefact details. Must
// run inside the same transaction that locked the row via GetForUpdate.
func (r *SignerRepository) Commit(ctx context.Context, tx *sql.Tx, id uuid.UUID, signatureHash, artefactPath string, signedAt sql.NullTime) error {
	const query = `
		UPDATE signers
		SET status = 'SIGNED', signed_at = $2, signature_hash = $3, signature_artefact_path = $4
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query, id, signedAt, signatureHash, artefactPath)
	if err != nil {
		return fmt.Errorf("commit signer: %w", err)
	}
	return mustAffectOne(res)
}

// Decline marks a Signer DECLINED.
func (r *SignerRepository) Decline(ctx context.Context, q Querier, id uuid.UUID) error {
	const query = `UPDATE signers SET status = 'DECLINED' WHERE id = $1`
	res, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("decline signer: %w", err)
	}
	return mustAffectOne(res)
}

const signerSelectColumns = `
	SELECT id, document_id, name, email, phone, cpf, qualification, auth_channels, "order", status,
		signed_at, signature_hash, signature_artefact_path,
		signature_position_page, signature_position_x, signature_position_y, created_at
`

func scanSigner(row *sql.Row) (*Signer, error) {
	var s Signer
	var channels pq.StringArray
	err := row.Scan(&s.ID, &s.DocumentID, &s.Name, &s.Email, &s.Phone, &s.CPF, &s.Qualification, &channels, &s.Order, &s.Status,
		&s.SignedAt, &s.SignatureHash, &s.SignatureArtefactPath,
		&s.SignaturePositionPage, &s.SignaturePositionX, &s.SignaturePositionY, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan signer: %w", err)
	}
	s.AuthChannels = toAuthChannels(channels)
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignerRow(rows rowScanner) (*Signer, error) {
	var s Signer
	var channels pq.StringArray
	err := rows.Scan(&s.ID, &s.DocumentID, &s.Name, &s.Email, &s.Phone, &s.CPF, &s.Qualification, &channels, &s.Order, &s.Status,
		&s.SignedAt, &s.SignatureHash, &s.SignatureArtefactPath,
		&s.SignaturePositionPage, &s.SignaturePositionX, &s.SignaturePositionY, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan signer: %w", err)
	}
	s.AuthChannels = toAuthChannels(channels)
	return &s, nil
}

func toAuthChannels(raw pq.StringArray) []AuthChannel {
	out := make([]AuthChannel, len(raw))
	for i, c := range raw {
		out[i] = AuthChannel(c)
	}
	return out
}
