package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{EnvStorageDriver, EnvSessionDriver, EnvCurrency, EnvRedisDB, EnvSessionTTL, EnvMetrics} {
		t.Setenv(key, "")
	}
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, "file", cfg.SessionDriver)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, defaultRedisAddr, cfg.RedisAddr)
	assert.Equal(t, defaultSessionTTL, cfg.SessionTTL)
	assert.NotEmpty(t, cfg.SessionFile)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvStorageDriver, "Postgres")
	t.Setenv(EnvRedisDB, "3")
	t.Setenv(EnvSessionTTL, "90m")
	t.Setenv(EnvCurrency, "eur")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "EUR", cfg.Currency)
}

func TestFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv(EnvRedisDB, "one")
	_, err := FromEnv()
	assert.ErrorContains(t, err, EnvRedisDB)

	t.Setenv(EnvRedisDB, "")
	t.Setenv(EnvSessionTTL, "soon")
	_, err = FromEnv()
	assert.ErrorContains(t, err, EnvSessionTTL)
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RENTLEDGER_SQLITE_PATH=/tmp/from-file.db\n"), 0o600))
	t.Setenv(EnvEnvFile, path)
	t.Setenv(EnvSQLitePath, "")
	require.NoError(t, os.Unsetenv(EnvSQLitePath))
	t.Cleanup(func() { _ = os.Unsetenv(EnvSQLitePath) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-file.db", cfg.SQLitePath)
}

func TestLoadWithoutEnvFile(t *testing.T) {
	t.Setenv(EnvEnvFile, filepath.Join(t.TempDir(), "missing.env"))
	_, err := Load()
	assert.NoError(t, err)
}

func TestFromEnvBlobSettings(t *testing.T) {
	t.Setenv(EnvBlobDriver, "S3")
	t.Setenv(EnvS3Bucket, "ledger")
	t.Setenv(EnvS3PathStyle, "TRUE")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.BlobDriver)
	assert.Equal(t, "ledger", cfg.S3Bucket)
	assert.True(t, cfg.S3PathStyle)
}
