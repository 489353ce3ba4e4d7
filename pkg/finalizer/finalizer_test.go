package finalizer_test

import (
	"database/sql"
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/internal/testdb"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/blobstore"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/finalizer"
)

// minimalPDF is the smallest widely-recognized valid PDF body: three
// indirect objects and a trailer dictionary, no xref table. pdfcpu's
// reader falls back to scanning the file for object markers when no
// xref section is present, which is what lets a fixture this small
// round-trip through PDFInfoFile and AddWatermarksFile.
const minimalPDF = "%PDF-1.1\n" +
	"1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n" +
	"2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n" +
	"3 0 obj<</Type/Page/Parent 2 0 R/Resources<<>>/MediaBox[0 0 200 200]>>endobj\n" +
	"trailer<</Root 1 0 R>>\n"

// minimalPNGBase64 is the ubiquitous 1x1 transparent PNG pixel used
// across the web as a placeholder image.
const minimalPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNk+A8AAQUBAScY42YAAAAASUVORK5CYII="

type fixture struct {
	fin    *finalizer.Finalizer
	repos  *database.Repositories
	blobs  *blobstore.Store
	client *database.Client
	db     *sql.DB
	doc    *database.Document
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := testdb.Open(t)
	repos := database.NewRepositories(client.DB())
	blobs, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	clock := capability.SystemClock{}
	hasher := capability.Hasher{}
	auditSvc := audit.New(repos.Audit, clock, "")
	fin := finalizer.New(repos, blobs, auditSvc, clock, hasher, nil)

	tenant := &database.Tenant{Name: "Acme Co"}
	require.NoError(t, repos.Tenants.Create(t.Context(), client.DB(), tenant))
	owner := &database.User{TenantID: tenant.ID, Email: "owner-" + tenant.ID.String() + "@example.com", Role: database.RoleAdmin}
	require.NoError(t, repos.Users.Create(t.Context(), client.DB(), owner))

	storageKey := blobstore.OriginalKey(tenant.ID, uuid.New(), ".pdf")
	require.NoError(t, blobs.Write(storageKey, []byte(minimalPDF)))

	doc := &database.Document{
		TenantID:   tenant.ID,
		OwnerID:    owner.ID,
		Title:      "Lease Agreement",
		MimeType:   "application/pdf",
		Size:       int64(len(minimalPDF)),
		StorageKey: storageKey,
		SHA256:     hasher.SumHex([]byte(minimalPDF)),
		Status:     database.DocumentPartiallySigned,
	}
	require.NoError(t, repos.Documents.Create(t.Context(), client.DB(), doc))

	return fixture{fin: fin, repos: repos, blobs: blobs, client: client, db: client.DB(), doc: doc}
}

func (f fixture) addSigner(t *testing.T, signed bool, withArtefact bool) *database.Signer {
	t.Helper()
	return f.addSignerAt(t, signed, withArtefact, true)
}

// addSignerAt is addSigner with control over whether a placement position
// is recorded. withPosition=false leaves signature_position_page/x/y NULL,
// the path a signer who never called PlacePosition takes — Finalize must
// then fall back to its stacked, auto-centered placement.
func (f fixture) addSignerAt(t *testing.T, signed bool, withArtefact bool, withPosition bool) *database.Signer {
	t.Helper()
	signer := &database.Signer{
		DocumentID:   f.doc.ID,
		Name:         "Alice",
		Email:        "alice@example.com",
		AuthChannels: []database.AuthChannel{database.ChannelEmail},
		Status:       database.SignerPending,
	}
	require.NoError(t, f.repos.Signers.Create(t.Context(), f.db, signer))
	if !signed {
		return signer
	}

	var artefactKey string
	if withArtefact {
		png, err := base64.StdEncoding.DecodeString(minimalPNGBase64)
		require.NoError(t, err)
		artefactKey = blobstore.SignatureKey(f.doc.TenantID, signer.ID)
		require.NoError(t, f.blobs.Write(artefactKey, png))
	}

	if withPosition {
		_, err := f.db.ExecContext(t.Context(), `
			UPDATE signers SET status = 'SIGNED', signed_at = now(), signature_hash = 'deadbeef',
			       signature_artefact_path = NULLIF($2, ''),
			       signature_position_page = 1, signature_position_x = 10, signature_position_y = 10
			WHERE id = $1`, signer.ID, artefactKey)
		require.NoError(t, err)
	} else {
		_, err := f.db.ExecContext(t.Context(), `
			UPDATE signers SET status = 'SIGNED', signed_at = now(), signature_hash = 'deadbeef',
			       signature_artefact_path = NULLIF($2, ''),
			       signature_position_page = NULL, signature_position_x = NULL, signature_position_y = NULL
			WHERE id = $1`, signer.ID, artefactKey)
		require.NoError(t, err)
	}

	signer.Status = database.SignerSigned
	signer.SignatureArtefactPath = sql.NullString{String: artefactKey, Valid: artefactKey != ""}
	return signer
}

func TestFinalize_StampsSignedSignerAndIssuesCertificate(t *testing.T) {
	f := newFixture(t)
	signer := f.addSigner(t, true, true)

	err := f.client.WithTx(t.Context(), func(tx *sql.Tx) error {
		lockedDoc, err := f.repos.Documents.GetForUpdate(t.Context(), tx, f.doc.ID)
		if err != nil {
			return err
		}
		return f.fin.Finalize(t.Context(), tx, lockedDoc, []*database.Signer{signer}, signer.ID, "127.0.0.1", "ua")
	})
	require.NoError(t, err)

	updated, err := f.repos.Documents.GetByID(t.Context(), f.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, database.DocumentSigned, updated.Status)
	assert.NotEqual(t, f.doc.StorageKey, updated.StorageKey, "finalize writes a distinct -signed blob key")
	assert.NotEmpty(t, updated.SHA256)

	cert, err := f.repos.Certificates.GetByDocument(t.Context(), f.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.SHA256, cert.SHA256)

	entries, err := f.repos.Audit.ListByEntity(t.Context(), audit.EntityDocument, f.doc.ID)
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, "PADES_SIGNED")
	assert.Contains(t, actions, "CERTIFICATE_ISSUED")
}

// TestFinalize_CentersStackedStampWhenPositionIsUnset exercises the
// branch a signer who never called PlacePosition takes: no recorded
// signature_position_page/x/y, so Finalize must fall back to its
// stacked, page-width-centered placement instead of defaulting to the
// left page edge.
func TestFinalize_CentersStackedStampWhenPositionIsUnset(t *testing.T) {
	f := newFixture(t)
	signer := f.addSignerAt(t, true, true, false)

	err := f.client.WithTx(t.Context(), func(tx *sql.Tx) error {
		lockedDoc, err := f.repos.Documents.GetForUpdate(t.Context(), tx, f.doc.ID)
		if err != nil {
			return err
		}
		return f.fin.Finalize(t.Context(), tx, lockedDoc, []*database.Signer{signer}, signer.ID, "127.0.0.1", "ua")
	})
	require.NoError(t, err)

	updated, err := f.repos.Documents.GetByID(t.Context(), f.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, database.DocumentSigned, updated.Status)
	assert.NotEqual(t, f.doc.SHA256, updated.SHA256, "the stamped, centered page differs from the unstamped original")
}

func TestFinalize_SkipsSignerWithoutArtefact(t *testing.T) {
	f := newFixture(t)
	signer := f.addSigner(t, true, false)

	err := f.client.WithTx(t.Context(), func(tx *sql.Tx) error {
		lockedDoc, err := f.repos.Documents.GetForUpdate(t.Context(), tx, f.doc.ID)
		if err != nil {
			return err
		}
		return f.fin.Finalize(t.Context(), tx, lockedDoc, []*database.Signer{signer}, signer.ID, "127.0.0.1", "ua")
	})
	require.NoError(t, err)

	updated, err := f.repos.Documents.GetByID(t.Context(), f.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, database.DocumentSigned, updated.Status)
	assert.Equal(t, f.doc.SHA256, updated.SHA256, "with no stampable signer the finalized bytes equal the original")
}
