package signerflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/database"
)

// Decline marks a Signer DECLINED. Reachable from PENDING or VIEWED
// (spec §4.4 "any | decline() | DECLINED"); SIGNED or already-DECLINED
// signers reject it with ErrAlreadyTerminal.
func (s *Service) Decline(ctx context.Context, rawToken, ip, userAgent string) error {
	_, signer, doc, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return err
	}
	if signer.Status == database.SignerSigned || signer.Status == database.SignerDeclined {
		return apperr.ErrAlreadyTerminal
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repos.Signers.Decline(ctx, tx, signer.ID); err != nil {
			return fmt.Errorf("decline signer: %w", err)
		}
		_, err := s.auditSvc.Append(ctx, tx, audit.AppendInput{
			TenantID:   doc.TenantID,
			ActorKind:  database.ActorSigner,
			ActorID:    uuid.NullUUID{UUID: signer.ID, Valid: true},
			EntityType: audit.EntitySigner,
			EntityID:   signer.ID,
			Action:     "DECLINED",
			IP:         ip,
			UserAgent:  userAgent,
		})
		return err
	})
}
