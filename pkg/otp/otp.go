// Package otp implements one-time code issuance and verification for
// the signer authentication step (spec §4.3). Codes are 6-digit decimal
// strings, bcrypt-hashed at rest, single-use, and scoped by a
// recipient/context pair rather than a channel: a signer who receives a
// code over email or WhatsApp can redeem it regardless of which channel
// they were sent it on.
package otp

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/database"
)

// ContextSigning is the only context code currently defined.
const ContextSigning = "SIGNING"

// CodeLength is the number of decimal digits in an issued code.
const CodeLength = 6

// Store issues and verifies OtpCode rows.
type Store struct {
	repo       *database.OtpRepository
	clock      capability.Clock
	rng        capability.RNG
	ttl        time.Duration
	bcryptCost int
}

// New constructs an otp Store. ttl is the code's validity window
// (OTP_TTL_MINUTES, default 10 minutes); bcryptCost is BCRYPT_COST
// (default 10).
func New(repo *database.OtpRepository, clock capability.Clock, rng capability.RNG, ttl time.Duration, bcryptCost int) *Store {
	return &Store{repo: repo, clock: clock, rng: rng, ttl: ttl, bcryptCost: bcryptCost}
}

// Issue draws a fresh code and stores its bcrypt hash against recipient,
// replacing any code still pending for the same recipient/context. It
// returns the cleartext code so the caller can hand it to the notifier;
// the code is never persisted in cleartext and must not be logged.
func (s *Store) Issue(ctx context.Context, q database.Querier, recipient string, channel database.AuthChannel) (code string, err error) {
	code, err = s.rng.Digits(CodeLength)
	if err != nil {
		return "", fmt.Errorf("draw otp code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash otp code: %w", err)
	}

	now := s.clock.Now()
	entry := &database.OtpCode{
		Recipient: recipient,
		Channel:   channel,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.ttl),
		Context:   ContextSigning,
	}
	if err := s.repo.Create(ctx, q, entry); err != nil {
		return "", fmt.Errorf("store otp code: %w", err)
	}
	return code, nil
}

// Verify checks code against the most recently issued code for any of
// recipients (spec §4.3: matches "any contact of the signer ...
// regardless of channel"). On success the row is deleted so it cannot
// be redeemed twice. Returns apperr.ErrOtpExpired if no live code is
// found, apperr.ErrOtpWrong if a live code does not match.
func (s *Store) Verify(ctx context.Context, q database.Querier, recipients []string, code string) error {
	entry, err := s.repo.GetMostRecentForRecipients(ctx, q, recipients, ContextSigning)
	if err != nil {
		return apperr.ErrOtpExpired
	}
	if entry.IsExpired(s.clock.Now()) {
		return apperr.ErrOtpExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.CodeHash), []byte(code)); err != nil {
		return apperr.ErrOtpWrong
	}
	if err := s.repo.Delete(ctx, q, entry.ID); err != nil {
		return fmt.Errorf("delete redeemed otp code: %w", err)
	}
	return nil
}
