// Package document implements the Document Service: ingesting an
// uploaded PDF, minting signer invitations, and the status transitions
// that do not require the full signing state machine (spec §4.1).
package document

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/blobstore"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/notify"
)

// Service implements document lifecycle operations.
type Service struct {
	db        *database.Client
	repos     *database.Repositories
	blobs     *blobstore.Store
	auditSvc  *audit.Service
	notifier  notify.Notifier
	clock     capability.Clock
	rng       capability.RNG
	hasher    capability.Hasher
	inviteTTL time.Duration
}

// New constructs a document Service.
func New(db *database.Client, repos *database.Repositories, blobs *blobstore.Store, auditSvc *audit.Service, notifier notify.Notifier, clock capability.Clock, rng capability.RNG, hasher capability.Hasher, inviteTTL time.Duration) *Service {
	return &Service{
		db:        db,
		repos:     repos,
		blobs:     blobs,
		auditSvc:  auditSvc,
		notifier:  notifier,
		clock:     clock,
		rng:       rng,
		hasher:    hasher,
		inviteTTL: inviteTTL,
	}
}

// CreateInput describes a new upload.
type CreateInput struct {
	TenantID     uuid.UUID
	OwnerID      uuid.UUID
	Title        string
	DeadlineAt   *time.Time
	FileBytes    []byte
	OriginalName string
	MimeType     string
	IP           string
	UserAgent    string
}

// Create writes the uploaded bytes to the blob store, creates the
// Document row, and appends STORAGE_UPLOADED to its chain (spec §4.1
// "Create + upload").
func (s *Service) Create(ctx context.Context, in CreateInput) (*database.Document, error) {
	if len(in.FileBytes) == 0 {
		return nil, fmt.Errorf("%w: empty file", apperr.ErrValidation)
	}

	docID := uuid.New()
	ext := filepath.Ext(in.OriginalName)
	key := blobstore.OriginalKey(in.TenantID, docID, ext)

	tempPath, err := s.blobs.WriteTemp(in.FileBytes)
	if err != nil {
		return nil, fmt.Errorf("write temp blob: %w", err)
	}
	if err := s.blobs.RenameFromTemp(tempPath, key); err != nil {
		s.blobs.RemoveTemp(tempPath)
		return nil, fmt.Errorf("finalize blob write: %w", err)
	}

	sha := s.hasher.SumHex(in.FileBytes)
	title := in.Title
	if title == "" {
		title = in.OriginalName
	}

	doc := &database.Document{
		ID:         docID,
		TenantID:   in.TenantID,
		OwnerID:    in.OwnerID,
		Title:      title,
		MimeType:   in.MimeType,
		Size:       int64(len(in.FileBytes)),
		StorageKey: key,
		SHA256:     sha,
		Status:     database.DocumentReady,
	}
	if in.DeadlineAt != nil {
		doc.DeadlineAt.Time = *in.DeadlineAt
		doc.DeadlineAt.Valid = true
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repos.Documents.Create(ctx, tx, doc); err != nil {
			return fmt.Errorf("create document row: %w", err)
		}
		_, err := s.auditSvc.Append(ctx, tx, audit.AppendInput{
			TenantID:   in.TenantID,
			ActorKind:  database.ActorUser,
			ActorID:    uuid.NullUUID{UUID: in.OwnerID, Valid: true},
			EntityType: audit.EntityDocument,
			EntityID:   docID,
			Action:     "STORAGE_UPLOADED",
			IP:         in.IP,
			UserAgent:  in.UserAgent,
			Payload:    audit.Payload{{"fileName", in.OriginalName}, {"sha256", sha}},
		})
		return err
	})
	if err != nil {
		s.blobs.Remove(key)
		return nil, fmt.Errorf("commit document creation: %w", err)
	}

	return doc, nil
}
