package signerflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/database"
)

// Summary is the signer-facing view of a Document and their own Signer
// record, returned by GET /sign/{token}.
type Summary struct {
	Document *database.Document
	Signer   *database.Signer
}

// Summary resolves token and, if the signer is still PENDING, advances
// them to VIEWED (spec §4.4: "PENDING | summary(token) | VIEWED").
// Repeated calls while already VIEWED are a no-op.
func (s *Service) Summary(ctx context.Context, rawToken, ip, userAgent string) (*Summary, error) {
	_, signer, doc, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if signer.Status == database.SignerPending {
		err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
			if err := s.repos.Signers.MarkViewed(ctx, tx, signer.ID); err != nil {
				return fmt.Errorf("mark signer viewed: %w", err)
			}
			_, err := s.auditSvc.Append(ctx, tx, audit.AppendInput{
				TenantID:   doc.TenantID,
				ActorKind:  database.ActorSigner,
				ActorID:    uuid.NullUUID{UUID: signer.ID, Valid: true},
				EntityType: audit.EntitySigner,
				EntityID:   signer.ID,
				Action:     "VIEWED",
				IP:         ip,
				UserAgent:  userAgent,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("advance signer to viewed: %w", err)
		}
		signer.Status = database.SignerViewed
	}

	return &Summary{Document: doc, Signer: signer}, nil
}
