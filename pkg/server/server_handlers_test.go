package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/internal/testdb"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/blobstore"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/document"
	"github.com/inkchain/esigner/pkg/finalizer"
	"github.com/inkchain/esigner/pkg/notify"
	"github.com/inkchain/esigner/pkg/otp"
	"github.com/inkchain/esigner/pkg/server"
	"github.com/inkchain/esigner/pkg/server/metrics"
	"github.com/inkchain/esigner/pkg/signerflow"
	"github.com/inkchain/esigner/pkg/validator"
)

type harness struct {
	handler http.Handler
	owner   *database.User
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client := testdb.Open(t)
	repos := database.NewRepositories(client.DB())
	blobs, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	clock := capability.SystemClock{}
	rng := capability.SystemRNG{}
	hasher := capability.Hasher{}

	auditSvc := audit.New(repos.Audit, clock, "")
	capturing := notify.NewCapturingNotifier()
	otpStore := otp.New(repos.Otp, clock, rng, 10*time.Minute, 4)
	fin := finalizer.New(repos, blobs, auditSvc, clock, hasher, nil)

	docs := document.New(client, repos, blobs, auditSvc, capturing, clock, rng, hasher, 30*24*time.Hour)
	flow := signerflow.New(client, repos, blobs, auditSvc, otpStore, fin, capturing, clock, hasher, 6)
	val := validator.New(client.DB(), repos.Documents, repos.Signers, repos.Users, hasher)

	m, metricsHandler := metrics.New()
	srv := server.New(client, repos, docs, flow, auditSvc, val, m, discardLogger())

	tenant := &database.Tenant{Name: "Acme Co"}
	require.NoError(t, repos.Tenants.Create(t.Context(), client.DB(), tenant))
	owner := &database.User{TenantID: tenant.ID, Email: "owner-" + tenant.ID.String() + "@example.com", Role: database.RoleAdmin}
	require.NoError(t, repos.Users.Create(t.Context(), client.DB(), owner))

	return harness{handler: srv.Routes(metricsHandler), owner: owner}
}

func uploadDocument(t *testing.T, h harness) map[string]interface{} {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("documentFile", "lease.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake content"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("title", "Lease Agreement"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-Id", h.owner.ID.String())
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestHandleHealth_ReportsOK(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleCreateDocument_RequiresActor(t *testing.T) {
	h := newHarness(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCreateDocument_StoresUploadAndReturnsIt(t *testing.T) {
	h := newHarness(t)
	doc := uploadDocument(t, h)
	assert.Equal(t, "READY", doc["Status"])
	assert.NotEmpty(t, doc["SHA256"])
}

func TestHandleInvite_CreatesSigners(t *testing.T) {
	h := newHarness(t)
	doc := uploadDocument(t, h)
	docID := doc["ID"].(string)

	payload := `{"signers":[{"name":"Alice","email":"alice@example.com","authChannels":["EMAIL"]}]}`
	req := httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/invite", bytes.NewBufferString(payload))
	req.Header.Set("X-User-Id", h.owner.ID.String())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Signers []map[string]interface{} `json:"signers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Signers, 1)
	assert.Equal(t, "PENDING", resp.Signers[0]["Status"])
}

func TestHandleCancel_TransitionsDocument(t *testing.T) {
	h := newHarness(t)
	doc := uploadDocument(t, h)
	docID := doc["ID"].(string)

	req := httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/cancel", nil)
	req.Header.Set("X-User-Id", h.owner.ID.String())
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A second cancel on an already-terminal document is rejected.
	req2 := httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/cancel", nil)
	req2.Header.Set("X-User-Id", h.owner.ID.String())
	rec2 := httptest.NewRecorder()
	h.handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusConflict, rec2.Code)
}

func TestHandleValidateFile_ReportsInvalidForUnknownContent(t *testing.T) {
	h := newHarness(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("documentFile", "random.bin")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a known document"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/validate-file", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["valid"])
}
