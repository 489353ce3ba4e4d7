// Package testdb provides a real-Postgres integration harness for
// repository and service tests, gated behind the ESIGNER_TEST_DB_URL
// environment variable so `go test ./...` degrades gracefully without a
// database, the same way the teacher project's proof_artifact_repository_test.go
// gates on CERTEN_TEST_DB.
package testdb

import (
	"context"
	"os"
	"testing"

	"github.com/inkchain/esigner/internal/config"
	"github.com/inkchain/esigner/pkg/database"
)

// Open connects to ESIGNER_TEST_DB_URL, runs migrations, and returns a
// ready Client. It calls t.Skip if the env var is unset.
func Open(t *testing.T) *database.Client {
	t.Helper()
	url := os.Getenv("ESIGNER_TEST_DB_URL")
	if url == "" {
		t.Skip("ESIGNER_TEST_DB_URL not set, skipping database integration test")
	}

	cfg := config.Defaults()
	cfg.DatabaseURL = url
	client, err := database.NewClient(cfg)
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.MigrateUp(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return client
}
