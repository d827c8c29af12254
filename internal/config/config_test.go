package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Recurring.LookbackMonths)
	assert.Equal(t, "0 3 * * *", cfg.Recurring.Schedule)
	assert.False(t, cfg.Archive.Enabled)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, DefaultPath)

	cfg := Default()
	cfg.Store.Backend = BackendPostgres
	cfg.Store.DatabaseURL = "postgres://localhost/statements"
	cfg.Recurring.Users = []string{"user-1", "user-2"}
	cfg.Server.ReadTimeout = 5 * time.Second
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	got, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, got.Server)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, DefaultPath)
	require.NoError(t, Save(path, Default()))

	t.Setenv("STORE_BACKEND", BackendBigQuery)
	t.Setenv("BQ_PROJECT", "acme-finance")
	t.Setenv("LOG_LEVEL", "debug")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBigQuery, got.Store.Backend)
	assert.Equal(t, "acme-finance", got.Store.BQProject)
	assert.Equal(t, "debug", got.Log.Level)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(envMap(map[string]string{
		"ARCHIVE_BACKEND": ArchiveS3,
		"ARCHIVE_ENABLED": "true",
		"S3_BUCKET":       "statements-audit",
		"GCS_BUCKET":      "ignored-for-s3",
		"AWS_REGION":      "af-south-1",
		"DETECT_USERS":    "user-1, user-2,,",
		"VISION_ENABLED":  "not-a-bool",
		"SQLITE_PATH":     "",
	}))

	assert.Equal(t, ArchiveS3, cfg.Archive.Backend)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "statements-audit", cfg.Archive.Bucket)
	assert.Equal(t, "af-south-1", cfg.Archive.Region)
	assert.Equal(t, []string{"user-1", "user-2"}, cfg.Recurring.Users)
	assert.False(t, cfg.Vision.Enabled)
	assert.Equal(t, "data/statements.db", cfg.Store.SQLitePath, "empty values do not override")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory", func(c *Config) { c.Store.Backend = BackendMemory }, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, `unknown store backend "mongo"`},
		{"postgres without url", func(c *Config) { c.Store.Backend = BackendPostgres }, "database_url is required"},
		{"bigquery without project", func(c *Config) { c.Store.Backend = BackendBigQuery }, "bq_project is required"},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }, "sqlite_path is required"},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }, "archive.bucket is required"},
		{"archive unknown backend", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Backend = "azure"
		}, `unknown archive backend "azure"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
