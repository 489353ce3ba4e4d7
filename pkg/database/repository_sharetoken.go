package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ShareTokenRepository persists ShareToken rows. Only the SHA-256 hash of
// the token is ever stored; the plaintext is handed to the notifier once
// and then forgotten (spec §4.3).
type ShareTokenRepository struct {
	db *sql.DB
}

// NewShareTokenRepository constructs a ShareTokenRepository.
func NewShareTokenRepository(db *sql.DB) *ShareTokenRepository {
	return &ShareTokenRepository{db: db}
}

// Create inserts a new ShareToken.
func (r *ShareTokenRepository) Create(ctx context.Context, q Querier, t *ShareToken) error {
	const query = `
		INSERT INTO share_tokens (document_id, signer_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := q.ExecContext(ctx, query, t.DocumentID, t.SignerID, t.TokenHash, t.ExpiresAt); err != nil {
		return fmt.Errorf("insert share token: %w", err)
	}
	return nil
}

// GetByHash resolves a presented token hash to its ShareToken row.
func (r *ShareTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*ShareToken, error) {
	const query = `
		SELECT document_id, signer_id, token_hash, expires_at, consumed_at
		FROM share_tokens WHERE token_hash = $1
	`
	var t ShareToken
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&t.DocumentID, &t.SignerID, &t.TokenHash, &t.ExpiresAt, &t.ConsumedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share token: %w", err)
	}
	return &t, nil
}

// IsExpired reports whether the token's validity window has passed.
func (t *ShareToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// MarkConsumed records the timestamp a token was most recently presented.
// Unlike OTP codes, share tokens are not single-use — a signer may return
// to the same link across PENDING/VIEWED — so this is informational only.
func (r *ShareTokenRepository) MarkConsumed(ctx context.Context, q Querier, signerID uuid.UUID, at time.Time) error {
	const query = `UPDATE share_tokens SET consumed_at = $2 WHERE signer_id = $1`
	if _, err := q.ExecContext(ctx, query, signerID, at); err != nil {
		return fmt.Errorf("mark share token consumed: %w", err)
	}
	return nil
}
