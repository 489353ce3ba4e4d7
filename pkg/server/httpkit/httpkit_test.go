package httpkit

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkchain/esigner/pkg/apperr"
)

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}

func TestWriteError_MapsSentinelsToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.ErrNotFound, http.StatusNotFound},
		{apperr.ErrInvalidToken, http.StatusUnauthorized},
		{apperr.ErrOtpExpired, http.StatusBadRequest},
		{apperr.ErrOtpWrong, http.StatusBadRequest},
		{apperr.ErrAlreadyTerminal, http.StatusConflict},
		{apperr.ErrLimitExceeded, http.StatusForbidden},
		{apperr.ErrIntegrity, http.StatusInternalServerError},
		{apperr.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err)
	}
}

func TestWriteError_IntegrityHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("sha256 mismatch on disk: %w", apperr.ErrIntegrity))
	assert.Contains(t, rec.Body.String(), "internal error")
	assert.NotContains(t, rec.Body.String(), "sha256 mismatch")
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":"b"}`))

	var dst payload
	err := DecodeJSON(req, &dst)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDecodeJSON_Valid(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))

	var dst payload
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "a", dst.Name)
}

func TestChain_RunsOutermostFirst(t *testing.T) {
	var order []string
	mw := func(label string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, label)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), mw("first"), mw("second"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestWithRequestID_SetsHeaderAndContext(t *testing.T) {
	var sawID string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawID = RequestID(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, rec.Header().Get("X-Request-Id"), sawID)
}

func TestWithRecover_ConvertsPanicTo500(t *testing.T) {
	logger := log.New(discardWriter{}, "", 0)
	handler := WithRecover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
