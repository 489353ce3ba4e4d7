package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_AppliesDefaultsWhenNoFileGiven(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 6, cfg.ShortCodeLength)
	assert.Equal(t, 48*time.Hour, cfg.ReminderHorizon.Duration())
}

func TestLoad_ParsesYAMLFileWithEnvSubstitution(t *testing.T) {
	t.Setenv("ESIGNER_TEST_BLOB_ROOT", "/tmp/esigner-blobs")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "http_addr: \":9090\"\n" +
		"database_url: \"postgres://localhost/custom\"\n" +
		"blob_root: \"${ESIGNER_TEST_BLOB_ROOT}\"\n" +
		"otp_ttl: \"5m\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres://localhost/custom", cfg.DatabaseURL)
	assert.Equal(t, "/tmp/esigner-blobs", cfg.BlobRoot)
	assert.Equal(t, 5*time.Minute, cfg.OtpTTL.Duration())
}

func TestLoad_EnvOverridesTakePriorityOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_url: \"postgres://localhost/from-file\"\n"), 0o600))

	t.Setenv("DATABASE_URL", "postgres://localhost/from-env")
	t.Setenv("SHORTCODE_LENGTH", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/from-env", cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.ShortCodeLength)
}

func TestLoad_MissingFileFallsBackToDefaultsAndEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().BlobRoot, cfg.BlobRoot)
}

func TestDurationYAMLRoundTrip(t *testing.T) {
	var wrapper struct {
		D Duration `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: \"1h30m\"\n"), &wrapper))
	assert.Equal(t, 90*time.Minute, wrapper.D.Duration())

	out, err := wrapper.D.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", out)
}

func TestDuration_InvalidStringIsRejected(t *testing.T) {
	var wrapper struct {
		D Duration `yaml:"d"`
	}
	err := yaml.Unmarshal([]byte("d: \"not-a-duration\"\n"), &wrapper)
	assert.Error(t, err)
}
