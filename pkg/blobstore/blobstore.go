// Package blobstore provides content-addressed file storage over the
// local filesystem, partitioned by tenant (spec §4 "Blob Store", §6
// "Persisted state layout"). Writes go through a temp file and an
// atomic rename so a reader never observes a partially-written blob.
package blobstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store reads and writes blobs rooted at a configured directory.
type Store struct {
	root string
}

// New constructs a Store rooted at root, creating it if necessary.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the configured blob root.
func (s *Store) Root() string {
	return s.root
}

// OriginalKey is the storage key for a Document's as-uploaded bytes.
func OriginalKey(tenantID, documentID uuid.UUID, ext string) string {
	return filepath.Join(tenantID.String(), documentID.String()+ext)
}

// SignedKey is the storage key for a Document's finalized bytes.
func SignedKey(tenantID, documentID uuid.UUID, ext string) string {
	return filepath.Join(tenantID.String(), documentID.String()+"-signed"+ext)
}

// SignatureKey is the storage key for one signer's signature PNG.
func SignatureKey(tenantID, signerID uuid.UUID) string {
	return filepath.Join(tenantID.String(), "signatures", signerID.String()+".png")
}

// WriteTemp writes data to a temp file beside the blob root and returns
// its path. The caller either renames it into place with RenameFromTemp
// or removes it on failure.
func (s *Store) WriteTemp(data []byte) (tempPath string, err error) {
	tmpDir := filepath.Join(s.root, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(tmpDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	return f.Name(), nil
}

// RemoveTemp discards a temp file written by WriteTemp. Safe to call on
// an already-removed path.
func (s *Store) RemoveTemp(tempPath string) {
	if tempPath == "" {
		return
	}
	os.Remove(tempPath)
}

// RenameFromTemp atomically moves a temp file into its final storage
// key, creating any parent directories it needs.
func (s *Store) RenameFromTemp(tempPath, key string) error {
	finalPath := s.path(key)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tempPath, finalPath, err)
	}
	return nil
}

// Remove deletes the blob at key, if present. Used to clean up a
// permanent file when the database row that should reference it fails
// to commit (spec §4.1 "if the row fails to commit, the permanent file
// is also removed").
func (s *Store) Remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob %s: %w", key, err)
	}
	return nil
}

// Read returns the full contents of the blob at key.
func (s *Store) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

// Write stores data at key directly, via a temp file and atomic rename.
// Convenience wrapper over WriteTemp+RenameFromTemp for callers that
// don't need to inspect the temp path in between (e.g. signature PNGs,
// finalized PDFs).
func (s *Store) Write(key string, data []byte) error {
	tmp, err := s.WriteTemp(data)
	if err != nil {
		return err
	}
	if err := s.RenameFromTemp(tmp, key); err != nil {
		s.RemoveTemp(tmp)
		return err
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, key)
}
