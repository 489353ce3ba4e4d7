// Package finalizer stamps every SIGNED signer's signature PNG onto the
// original PDF, producing the finalized, content-addressed "-signed"
// blob and issuing the Certificate row (spec §4.5).
package finalizer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/blobstore"
	"github.com/inkchain/esigner/pkg/database"
)

// stampWidth and stampHeight are the fixed signature stamp dimensions,
// in points, for both explicit and stacked placement (spec §4.5).
const (
	stampWidth  = 180
	stampHeight = 65
	stackStartY = 30
	stackStepY  = 75
)

// Finalizer applies signature stamps and finalizes a Document.
type Finalizer struct {
	repos  *database.Repositories
	blobs  *blobstore.Store
	audit  *audit.Service
	clock  capability.Clock
	hasher capability.Hasher
	logger *log.Logger
}

// New constructs a Finalizer. A nil logger is replaced by a default one.
func New(repos *database.Repositories, blobs *blobstore.Store, auditSvc *audit.Service, clock capability.Clock, hasher capability.Hasher, logger *log.Logger) *Finalizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[finalizer] ", log.LstdFlags)
	}
	return &Finalizer{repos: repos, blobs: blobs, audit: auditSvc, clock: clock, hasher: hasher, logger: logger}
}

// Finalize stamps every SIGNED signer onto doc's original PDF and
// transitions doc to SIGNED, inside tx. The caller (signerflow.Commit)
// must already hold the Document row lock; Finalize performs no
// additional locking of its own.
func (f *Finalizer) Finalize(ctx context.Context, tx *sql.Tx, doc *database.Document, signers []*database.Signer, actorID uuid.UUID, ip, userAgent string) error {
	originalBytes, err := f.blobs.Read(doc.StorageKey)
	if err != nil {
		return fmt.Errorf("read original blob: %w", err)
	}

	srcPath := filepath.Join(f.blobs.Root(), doc.StorageKey)
	tmpA := srcPath + ".stamp-a.tmp"
	tmpB := srcPath + ".stamp-b.tmp"

	pageCount, err := countPages(srcPath)
	if err != nil {
		return fmt.Errorf("count pdf pages: %w", err)
	}

	// Stacked placement (a signer with no recorded position) always lands
	// on the last page, so that page's width is what spec §4.5's
	// (pageWidth-180)/2 centering formula needs.
	lastPageWidth, err := pageWidthAt(srcPath, pageCount)
	if err != nil {
		return fmt.Errorf("measure pdf page width: %w", err)
	}

	working := srcPath
	next := tmpA
	stamped := false
	stacked := 0
	for _, signer := range signers {
		if signer.Status != database.SignerSigned {
			continue
		}
		if !signer.SignatureArtefactPath.Valid {
			f.logger.Printf("finalize: signer %s has no signature artefact, skipping stamp", signer.ID)
			continue
		}
		artefactAbs := filepath.Join(f.blobs.Root(), signer.SignatureArtefactPath.String)
		if _, err := os.Stat(artefactAbs); err != nil {
			f.logger.Printf("finalize: signature artefact unreadable for signer %s: %v", signer.ID, err)
			continue
		}

		page := pageCount
		x, y := (lastPageWidth-stampWidth)/2, float64(stackStartY+stacked*stackStepY)
		if signer.SignaturePositionPage.Valid && signer.SignaturePositionX.Valid && signer.SignaturePositionY.Valid {
			page = int(signer.SignaturePositionPage.Int64)
			x = signer.SignaturePositionX.Float64
			y = signer.SignaturePositionY.Float64
		} else {
			stacked++
		}

		if err := stampImage(working, next, artefactAbs, page, x, y); err != nil {
			f.logger.Printf("finalize: stamp failed for signer %s: %v", signer.ID, err)
			continue
		}
		if working != srcPath {
			os.Remove(working)
		}
		working = next
		stamped = true
		if next == tmpA {
			next = tmpB
		} else {
			next = tmpA
		}
	}

	var finalBytes []byte
	if !stamped {
		finalBytes = originalBytes
	} else {
		finalBytes, err = os.ReadFile(working)
		if err != nil {
			return fmt.Errorf("read stamped pdf: %w", err)
		}
		os.Remove(working)
	}

	ext := filepath.Ext(doc.StorageKey)
	signedKey := blobstore.SignedKey(doc.TenantID, doc.ID, ext)
	if err := f.blobs.Write(signedKey, finalBytes); err != nil {
		return fmt.Errorf("write finalized blob: %w", err)
	}

	sha := f.hasher.SumHex(finalBytes)
	if err := f.repos.Documents.FinalizeStorage(ctx, tx, doc.ID, signedKey, sha, database.DocumentSigned); err != nil {
		return fmt.Errorf("finalize document row: %w", err)
	}

	if _, err := f.audit.Append(ctx, tx, audit.AppendInput{
		TenantID:   doc.TenantID,
		ActorKind:  database.ActorSystem,
		EntityType: audit.EntityDocument,
		EntityID:   doc.ID,
		Action:     "PADES_SIGNED",
		IP:         ip,
		UserAgent:  userAgent,
		Payload:    audit.Payload{{"sha256", sha}},
	}); err != nil {
		return fmt.Errorf("append pades_signed audit entry: %w", err)
	}

	cert := &database.Certificate{DocumentID: doc.ID, StorageKey: signedKey, SHA256: sha}
	if err := f.repos.Certificates.Create(ctx, tx, cert); err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}

	if _, err := f.audit.Append(ctx, tx, audit.AppendInput{
		TenantID:   doc.TenantID,
		ActorKind:  database.ActorSystem,
		EntityType: audit.EntityDocument,
		EntityID:   doc.ID,
		Action:     "CERTIFICATE_ISSUED",
		IP:         ip,
		UserAgent:  userAgent,
		Payload:    audit.Payload{{"sha256", sha}},
	}); err != nil {
		return fmt.Errorf("append certificate_issued audit entry: %w", err)
	}

	return nil
}

// stampImage embeds a PNG at (x, y) with the fixed stamp dimensions on
// the given 1-indexed page, writing the result to outPath.
func stampImage(inPath, outPath, imagePath string, page int, x, y float64) error {
	desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:%d %d abs, rot:0", x, y, stampWidth, stampHeight)
	wm, err := api.ImageWatermark(imagePath, desc, true, false, model.POINTS)
	if err != nil {
		return fmt.Errorf("build image watermark: %w", err)
	}
	selected := []string{fmt.Sprintf("%d", page)}
	if err := api.AddWatermarksFile(inPath, outPath, selected, wm, nil); err != nil {
		return fmt.Errorf("apply image watermark: %w", err)
	}
	return nil
}

// countPages returns a PDF's page count via pdfcpu's info API.
func countPages(path string) (int, error) {
	info, err := api.PDFInfoFile(path, "", nil, false, nil)
	if err != nil {
		return 0, fmt.Errorf("read pdf info: %w", err)
	}
	return info.PageCount, nil
}

// pageWidthAt returns the width, in points, of the given 1-indexed page
// via pdfcpu's page dimension API.
func pageWidthAt(path string, page int) (float64, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pdf page dimensions: %w", err)
	}
	if page < 1 || page > len(dims) {
		return 0, fmt.Errorf("page dimensions unavailable for page %d", page)
	}
	return dims[page-1].Width, nil
}
