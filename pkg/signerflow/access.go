// Package signerflow implements the Signer Service state machine
// (spec §4.4): summary, identify, OTP start/verify, position placement,
// commit, and decline, all authenticated by a share token rather than a
// session.
package signerflow

import (
	"context"
	"fmt"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/blobstore"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/finalizer"
	"github.com/inkchain/esigner/pkg/notify"
	"github.com/inkchain/esigner/pkg/otp"
)

// Service implements the signer-facing half of the signing pipeline.
type Service struct {
	db         *database.Client
	repos      *database.Repositories
	blobs      *blobstore.Store
	auditSvc   *audit.Service
	otpStore   *otp.Store
	finalizer  *finalizer.Finalizer
	notifier   notify.Notifier
	clock      capability.Clock
	hasher     capability.Hasher
	shortCodeN int
}

// New constructs a signerflow Service. shortCodeLen is SHORTCODE_LENGTH
// (default 6).
func New(db *database.Client, repos *database.Repositories, blobs *blobstore.Store, auditSvc *audit.Service, otpStore *otp.Store, fin *finalizer.Finalizer, notifier notify.Notifier, clock capability.Clock, hasher capability.Hasher, shortCodeLen int) *Service {
	return &Service{
		db:         db,
		repos:      repos,
		blobs:      blobs,
		auditSvc:   auditSvc,
		otpStore:   otpStore,
		finalizer:  fin,
		notifier:   notifier,
		clock:      clock,
		hasher:     hasher,
		shortCodeN: shortCodeLen,
	}
}

// resolveToken authenticates a raw share token: it must hash to a known
// ShareToken, not be expired, and point to a Signer whose Document is
// still accepting signatures (spec §4.4 "Access control").
func (s *Service) resolveToken(ctx context.Context, rawToken string) (*database.ShareToken, *database.Signer, *database.Document, error) {
	tokenHash := s.hasher.SumHex([]byte(rawToken))

	share, err := s.repos.ShareTokens.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w", apperr.ErrInvalidToken)
	}
	if share.IsExpired(s.clock.Now()) {
		return nil, nil, nil, fmt.Errorf("%w", apperr.ErrInvalidToken)
	}

	signer, err := s.repos.Signers.Get(ctx, s.db.DB(), share.SignerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w", apperr.ErrInvalidToken)
	}

	doc, err := s.repos.Documents.GetByID(ctx, share.DocumentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w", apperr.ErrInvalidToken)
	}
	if doc.Status != database.DocumentReady && doc.Status != database.DocumentPartiallySigned {
		return nil, nil, nil, fmt.Errorf("%w", apperr.ErrInvalidToken)
	}

	return share, signer, doc, nil
}

// contactRecipients returns a signer's email and phone (if present), the
// set of contacts an OTP lookup matches against regardless of channel.
func contactRecipients(signer *database.Signer) []string {
	recipients := []string{signer.Email}
	if signer.Phone.Valid && signer.Phone.String != "" {
		recipients = append(recipients, signer.Phone.String)
	}
	return recipients
}
