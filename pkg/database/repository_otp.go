package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// OtpRepository persists OtpCode rows. Codes are one-shot: a successful
// verification deletes the row outright (spec §4.3 OTP step).
type OtpRepository struct {
	db *sql.DB
}

// NewOtpRepository constructs an OtpRepository.
func NewOtpRepository(db *sql.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

// Create inserts a new OtpCode, replacing any still-live code previously
// issued for the same recipient and context so only one code is ever
// redeemable at a time.
func (r *OtpRepository) Create(ctx context.Context, q Querier, o *OtpCode) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	const del = `DELETE FROM otp_codes WHERE recipient = $1 AND context = $2`
	if _, err := q.ExecContext(ctx, del, o.Recipient, o.Context); err != nil {
		return fmt.Errorf("clear prior otp codes: %w", err)
	}
	const query = `
		INSERT INTO otp_codes (id, recipient, channel, code_hash, expires_at, context)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := q.QueryRowContext(ctx, query, o.ID, o.Recipient, o.Channel, o.CodeHash, o.ExpiresAt, o.Context).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert otp code: %w", err)
	}
	return nil
}

// GetMostRecentForContext returns the most recently issued OtpCode for a
// recipient within a context, irrespective of which channel it was sent
// over — spec §9's decided default for recipient/channel matching.
func (r *OtpRepository) GetMostRecentForContext(ctx context.Context, q Querier, recipient, context_ string) (*OtpCode, error) {
	const query = `
		SELECT id, recipient, channel, code_hash, expires_at, context, created_at
		FROM otp_codes
		WHERE recipient = $1 AND context = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var o OtpCode
	err := q.QueryRowContext(ctx, query, recipient, context_).Scan(&o.ID, &o.Recipient, &o.Channel, &o.CodeHash, &o.ExpiresAt, &o.Context, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get otp code: %w", err)
	}
	return &o, nil
}

// GetMostRecentForRecipients returns the most recently issued OtpCode
// whose recipient matches any of the given contacts (email or E.164
// phone) within a context, irrespective of channel — spec §4.3
// "Verification looks up the most recent row whose recipient matches
// any contact of the signer ... regardless of channel."
func (r *OtpRepository) GetMostRecentForRecipients(ctx context.Context, q Querier, recipients []string, context_ string) (*OtpCode, error) {
	if len(recipients) == 0 {
		return nil, ErrNotFound
	}
	const query = `
		SELECT id, recipient, channel, code_hash, expires_at, context, created_at
		FROM otp_codes
		WHERE recipient = ANY($1) AND context = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var o OtpCode
	err := q.QueryRowContext(ctx, query, pq.StringArray(recipients), context_).Scan(&o.ID, &o.Recipient, &o.Channel, &o.CodeHash, &o.ExpiresAt, &o.Context, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get otp code: %w", err)
	}
	return &o, nil
}

// Delete removes an OtpCode by id, consuming it after a successful verify.
func (r *OtpRepository) Delete(ctx context.Context, q Querier, id uuid.UUID) error {
	const query = `DELETE FROM otp_codes WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete otp code: %w", err)
	}
	return nil
}

// IsExpired reports whether the code's TTL has elapsed.
func (o *OtpCode) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
