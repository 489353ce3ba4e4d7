package blobstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)
	return s
}

func TestWriteAndRead_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	key := "tenant-a/doc-1.pdf"

	require.NoError(t, s.Write(key, []byte("hello pdf")))

	got, err := s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, "hello pdf", string(got))
}

func TestWrite_NoTempFileLeftBehind(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("a/b.pdf", []byte("data")))

	entries, err := os.ReadDir(filepath.Join(s.Root(), ".tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries, "rename should have moved the temp file, not copied it")
}

func TestRenameFromTemp_CreatesParentDirs(t *testing.T) {
	s := newTestStore(t)
	tmp, err := s.WriteTemp([]byte("payload"))
	require.NoError(t, err)

	require.NoError(t, s.RenameFromTemp(tmp, "deep/nested/path/file.bin"))

	got, err := s.Read("deep/nested/path/file.bin")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestRemoveTemp_SafeOnMissingPath(t *testing.T) {
	s := newTestStore(t)
	s.RemoveTemp("")
	s.RemoveTemp(filepath.Join(s.Root(), ".tmp", "does-not-exist"))
}

func TestRemove_SafeWhenMissing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Remove("never-written.bin"))
}

func TestRemove_DeletesExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("x.bin", []byte("x")))
	require.NoError(t, s.Remove("x.bin"))

	_, err := s.Read("x.bin")
	assert.Error(t, err)
}

func TestRead_MissingKey(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Read("nope.bin")
	assert.Error(t, err)
}

func TestKeyHelpers(t *testing.T) {
	tenant := uuid.New()
	doc := uuid.New()
	signer := uuid.New()

	assert.Equal(t, filepath.Join(tenant.String(), doc.String()+".pdf"), OriginalKey(tenant, doc, ".pdf"))
	assert.Equal(t, filepath.Join(tenant.String(), doc.String()+"-signed.pdf"), SignedKey(tenant, doc, ".pdf"))
	assert.Equal(t, filepath.Join(tenant.String(), "signatures", signer.String()+".png"), SignatureKey(tenant, signer))
}
