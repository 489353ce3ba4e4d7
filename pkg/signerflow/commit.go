package signerflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/blobstore"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/notify"
)

// CommitInput carries the signer's final authentication and signature
// artefact.
type CommitInput struct {
	ClientFingerprint string
	SignaturePNG      []byte
	IP                string
	UserAgent         string
}

// CommitResult is returned to the signer on a successful commit.
type CommitResult struct {
	ShortCode     string
	SignatureHash string
	IsComplete    bool
}

// Commit is the hardest step of the state machine (spec §4.4 "Commit").
// It runs inside a single serializable transaction that locks both the
// Document row and every Signer row belonging to it, so that of two
// concurrent commits on the last two outstanding signers, exactly one
// observes "all signers SIGNED" and triggers Finalize.
func (s *Service) Commit(ctx context.Context, rawToken string, in CommitInput) (*CommitResult, error) {
	_, signer, doc, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if err := requireViewed(signer); err != nil {
		return nil, err
	}
	if len(in.SignaturePNG) == 0 {
		return nil, fmt.Errorf("%w: signature image is required", apperr.ErrValidation)
	}

	artefactKey := blobstore.SignatureKey(doc.TenantID, signer.ID)
	if err := s.blobs.Write(artefactKey, in.SignaturePNG); err != nil {
		return nil, fmt.Errorf("persist signature artefact: %w", err)
	}

	var result *CommitResult
	var completed bool

	commitTx := func(tx *sql.Tx) error {
		lockedDoc, err := s.repos.Documents.GetForUpdate(ctx, tx, doc.ID)
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if lockedDoc.Status.IsTerminal() {
			return apperr.ErrAlreadyTerminal
		}

		lockedSigner, err := s.repos.Signers.GetForUpdate(ctx, tx, signer.ID)
		if err != nil {
			return fmt.Errorf("lock signer: %w", err)
		}
		if lockedSigner.Status == database.SignerSigned || lockedSigner.Status == database.SignerDeclined {
			return apperr.ErrAlreadyTerminal
		}

		now := s.clock.Now()
		timestamp := capability.ISOMilli(now)
		signatureHash := s.hasher.ConcatHex(
			[]byte(lockedDoc.SHA256),
			[]byte(signer.ID.String()),
			[]byte(timestamp),
			[]byte(in.ClientFingerprint),
		)
		shortCode := strings.ToUpper(signatureHash[:s.shortCodeLen()])

		signedAt := sql.NullTime{Time: now, Valid: true}
		if err := s.repos.Signers.Commit(ctx, tx, signer.ID, signatureHash, artefactKey, signedAt); err != nil {
			return fmt.Errorf("commit signer row: %w", err)
		}

		if _, err := s.auditSvc.Append(ctx, tx, audit.AppendInput{
			TenantID:   doc.TenantID,
			ActorKind:  database.ActorSigner,
			ActorID:    uuid.NullUUID{UUID: signer.ID, Valid: true},
			EntityType: audit.EntitySigner,
			EntityID:   signer.ID,
			Action:     "SIGNED",
			IP:         in.IP,
			UserAgent:  in.UserAgent,
			Payload:    audit.Payload{{"signatureHash", signatureHash}, {"shortCode", shortCode}, {"artefactPath", artefactKey}},
		}); err != nil {
			return fmt.Errorf("append signed audit entry: %w", err)
		}

		allSigners, err := s.repos.Signers.ListByDocumentForUpdate(ctx, tx, doc.ID)
		if err != nil {
			return fmt.Errorf("list signers for update: %w", err)
		}

		allDone := true
		for _, sg := range allSigners {
			if sg.ID == signer.ID {
				continue
			}
			if sg.Status != database.SignerSigned {
				allDone = false
				break
			}
		}

		if allDone {
			if err := s.finalizer.Finalize(ctx, tx, lockedDoc, allSigners, signer.ID, in.IP, in.UserAgent); err != nil {
				return fmt.Errorf("finalize document: %w", err)
			}
			completed = true
		} else if lockedDoc.Status != database.DocumentPartiallySigned {
			if err := s.repos.Documents.UpdateStatus(ctx, tx, doc.ID, database.DocumentPartiallySigned); err != nil {
				return fmt.Errorf("mark document partially signed: %w", err)
			}
		}

		result = &CommitResult{ShortCode: shortCode, SignatureHash: signatureHash, IsComplete: completed}
		return nil
	}

	// The later of two concurrent commits on one document fails with a
	// serialization error (SQLSTATE 40001); it is rerun against the
	// committed state, up to three attempts in all.
	var txErr error
	for attempt := 1; ; attempt++ {
		result, completed = nil, false
		txErr = s.db.WithTx(ctx, commitTx)
		var pqErr *pq.Error
		if attempt >= 3 || !errors.As(txErr, &pqErr) || pqErr.Code != "40001" {
			break
		}
	}
	if txErr != nil {
		return nil, txErr
	}

	if completed {
		_ = s.notifier.SendCompletion(ctx, notify.Completion{DocumentID: doc.ID, Recipients: []string{signer.Email}})
	}
	return result, nil
}

func (s *Service) shortCodeLen() int {
	if s.shortCodeN <= 0 {
		return 6
	}
	return s.shortCodeN
}
