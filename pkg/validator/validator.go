// Package validator implements the public document-provenance check
// (spec §4.6): given raw PDF bytes, prove or disprove that the system
// produced them, with no side effects and no authentication beyond the
// caller's normal access.
package validator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/database"
)

// SignerSummary is one signer's public-facing status in a Result.
type SignerSummary struct {
	Name     string
	Email    string
	Status   database.SignerStatus
	SignedAt *time.Time
}

// DocumentSummary is the provenance detail returned for a matched
// Document.
type DocumentSummary struct {
	Title     string
	Status    database.DocumentStatus
	CreatedAt time.Time
	OwnerName string
	Signers   []SignerSummary
}

// Result is the outcome of validating an uploaded file.
type Result struct {
	Valid    bool
	Document *DocumentSummary
}

// Validator checks uploaded bytes against known Document hashes.
type Validator struct {
	db        *sql.DB
	documents *database.DocumentRepository
	signers   *database.SignerRepository
	users     *database.UserRepository
	hasher    capability.Hasher
}

// New constructs a Validator.
func New(db *sql.DB, documents *database.DocumentRepository, signers *database.SignerRepository, users *database.UserRepository, hasher capability.Hasher) *Validator {
	return &Validator{db: db, documents: documents, signers: signers, users: users, hasher: hasher}
}

// Validate hashes fileBytes and reports whether a Document with that
// SHA-256 exists, along with its public provenance detail.
func (v *Validator) Validate(ctx context.Context, fileBytes []byte) (*Result, error) {
	sha := v.hasher.SumHex(fileBytes)

	doc, err := v.documents.GetBySHA256(ctx, sha)
	if errors.Is(err, database.ErrNotFound) {
		return &Result{Valid: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup document by sha256: %w", err)
	}

	owner, err := v.users.Get(ctx, doc.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("lookup document owner: %w", err)
	}

	signers, err := v.signers.ListByDocument(ctx, v.db, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list signers: %w", err)
	}

	summaries := make([]SignerSummary, 0, len(signers))
	for _, sg := range signers {
		var signedAt *time.Time
		if sg.SignedAt.Valid {
			t := sg.SignedAt.Time
			signedAt = &t
		}
		summaries = append(summaries, SignerSummary{
			Name:     sg.Name,
			Email:    sg.Email,
			Status:   sg.Status,
			SignedAt: signedAt,
		})
	}

	return &Result{
		Valid: true,
		Document: &DocumentSummary{
			Title:     doc.Title,
			Status:    doc.Status,
			CreatedAt: doc.CreatedAt,
			OwnerName: owner.Email,
			Signers:   summaries,
		},
	}, nil
}
