package signerflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/database"
)

// requireViewed enforces that an event only fires while a Signer is in
// VIEWED (spec §4.4's transition table: identify/otpStart/otpVerify/
// placePosition/commit all originate from VIEWED).
func requireViewed(signer *database.Signer) error {
	switch signer.Status {
	case database.SignerViewed:
		return nil
	case database.SignerSigned, database.SignerDeclined:
		return apperr.ErrAlreadyTerminal
	default:
		return fmt.Errorf("%w: signer has not yet viewed the document", apperr.ErrValidation)
	}
}

// IdentifyInput supplies the optional identifying fields a signer may
// confirm before proceeding to OTP.
type IdentifyInput struct {
	CPF   string
	Phone string
}

// Identify updates the signer's CPF/phone on file. No audit entry is
// emitted for this step (spec §4.4 lists no side effect beyond the row
// update).
func (s *Service) Identify(ctx context.Context, rawToken string, in IdentifyInput) error {
	_, signer, _, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return err
	}
	if err := requireViewed(signer); err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.repos.Signers.Identify(ctx, tx, signer.ID, in.CPF, in.Phone)
	})
}
