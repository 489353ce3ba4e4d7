package document

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/notify"
)

// SignerDescriptor is one entry of an InviteSigners request.
type SignerDescriptor struct {
	Name          string
	Email         string
	Phone         string
	CPF           string
	Qualification string
	AuthChannels  []database.AuthChannel
	Order         int
}

// InviteInput describes an invite-signers request.
type InviteInput struct {
	DocumentID uuid.UUID
	Signers    []SignerDescriptor
	Message    string
	ActorID    uuid.UUID
	IP         string
	UserAgent  string
}

// InviteSigners creates one Signer row plus one ShareToken per
// descriptor, all within a single transaction, then hands each
// cleartext token to the notifier exactly once after commit (spec §4.1
// "Invite signers").
func (s *Service) InviteSigners(ctx context.Context, in InviteInput) ([]*database.Signer, error) {
	if len(in.Signers) == 0 {
		return nil, fmt.Errorf("%w: at least one signer is required", apperr.ErrValidation)
	}

	type pendingInvite struct {
		signer *database.Signer
		token  string
	}

	var doc *database.Document
	var created []*database.Signer
	var pending []pendingInvite

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		doc, err = s.repos.Documents.GetForUpdate(ctx, tx, in.DocumentID)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		if doc.Status.IsTerminal() {
			return apperr.ErrAlreadyTerminal
		}

		for _, desc := range in.Signers {
			signer := &database.Signer{
				DocumentID:   in.DocumentID,
				Name:         desc.Name,
				Email:        desc.Email,
				AuthChannels: desc.AuthChannels,
				Order:        desc.Order,
				Status:       database.SignerPending,
			}
			if desc.Phone != "" {
				signer.Phone.String, signer.Phone.Valid = desc.Phone, true
			}
			if desc.CPF != "" {
				signer.CPF.String, signer.CPF.Valid = desc.CPF, true
			}
			if desc.Qualification != "" {
				signer.Qualification.String, signer.Qualification.Valid = desc.Qualification, true
			}
			if err := s.repos.Signers.Create(ctx, tx, signer); err != nil {
				return fmt.Errorf("create signer: %w", err)
			}

			token, tokenHash, err := generateToken(s.rng, s.hasher)
			if err != nil {
				return fmt.Errorf("generate share token: %w", err)
			}
			expiresAt := doc.DeadlineAt.Time
			if !doc.DeadlineAt.Valid {
				expiresAt = s.clock.Now().Add(s.inviteTTL)
			}
			shareToken := &database.ShareToken{
				DocumentID: in.DocumentID,
				SignerID:   signer.ID,
				TokenHash:  tokenHash,
				ExpiresAt:  expiresAt,
			}
			if err := s.repos.ShareTokens.Create(ctx, tx, shareToken); err != nil {
				return fmt.Errorf("create share token: %w", err)
			}

			recipient := signer.Email
			if _, err := s.auditSvc.Append(ctx, tx, audit.AppendInput{
				TenantID:   doc.TenantID,
				ActorKind:  database.ActorUser,
				ActorID:    uuid.NullUUID{UUID: in.ActorID, Valid: true},
				EntityType: audit.EntitySigner,
				EntityID:   signer.ID,
				Action:     "INVITED",
				IP:         in.IP,
				UserAgent:  in.UserAgent,
				Payload:    audit.Payload{{"documentId", in.DocumentID.String()}, {"recipient", recipient}},
			}); err != nil {
				return fmt.Errorf("append invited audit entry: %w", err)
			}

			created = append(created, signer)
			pending = append(pending, pendingInvite{signer: signer, token: token})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		channel := database.ChannelEmail
		if len(p.signer.AuthChannels) > 0 {
			channel = p.signer.AuthChannels[0]
		}
		_ = s.notifier.SendInvite(ctx, notify.Invite{
			SignerID:   p.signer.ID,
			DocumentID: in.DocumentID,
			Recipient:  p.signer.Email,
			Channel:    channel,
			Token:      p.token,
			Message:    in.Message,
		})
	}

	return created, nil
}

// generateToken draws a 32-byte URL-safe token and returns it alongside
// the SHA-256 hash stored at rest (spec §4.1: "tokenHash=SHA-256(token)").
func generateToken(rng capability.RNG, hasher capability.Hasher) (token, tokenHash string, err error) {
	raw, err := rng.Bytes(32)
	if err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	tokenHash = hasher.SumHex([]byte(token))
	return token, tokenHash, nil
}
