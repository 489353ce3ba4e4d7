package document

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/database"
)

// Cancel transitions a non-terminal Document to CANCELLED (spec §4.1
// "Status change").
func (s *Service) Cancel(ctx context.Context, documentID, actorID uuid.UUID, ip, userAgent string) error {
	return s.transition(ctx, documentID, actorID, database.DocumentCancelled, ip, userAgent)
}

// Expire transitions a non-terminal Document to EXPIRED.
func (s *Service) Expire(ctx context.Context, documentID, actorID uuid.UUID, ip, userAgent string) error {
	return s.transition(ctx, documentID, actorID, database.DocumentExpired, ip, userAgent)
}

func (s *Service) transition(ctx context.Context, documentID, actorID uuid.UUID, newStatus database.DocumentStatus, ip, userAgent string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		doc, err := s.repos.Documents.GetForUpdate(ctx, tx, documentID)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		if doc.Status.IsTerminal() {
			return apperr.ErrAlreadyTerminal
		}
		if err := s.repos.Documents.UpdateStatus(ctx, tx, documentID, newStatus); err != nil {
			return fmt.Errorf("update document status: %w", err)
		}
		_, err = s.auditSvc.Append(ctx, tx, audit.AppendInput{
			TenantID:   doc.TenantID,
			ActorKind:  database.ActorUser,
			ActorID:    uuid.NullUUID{UUID: actorID, Valid: true},
			EntityType: audit.EntityDocument,
			EntityID:   documentID,
			Action:     "STATUS_CHANGED",
			IP:         ip,
			UserAgent:  userAgent,
			Payload:    audit.Payload{{"newStatus", string(newStatus)}},
		})
		return err
	})
}
