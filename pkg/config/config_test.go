package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv(EnvProjectID, "")
	t.Setenv(EnvPublicKey, "")
	t.Setenv(EnvBaseURL, "")
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "crm.db"), cfg.Store.DSN)
	assert.Equal(t, DefaultCalendar, cfg.Calendar)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRemoteWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: remote
  project_id: from-file
tables:
  task: task9
log:
  level: debug
  json: true
`), 0600))
	t.Setenv(EnvPublicKey, "pk-env")
	t.Setenv(EnvBaseURL, "http://localhost:9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Store.ProjectID)
	assert.Equal(t, "pk-env", cfg.Store.PublicKey)
	assert.Equal(t, "http://localhost:9000", cfg.Store.BaseURL)
	assert.Equal(t, "task9", cfg.Tables.Task)
	assert.Empty(t, cfg.Tables.Contact)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRemoteRequiresCredentials(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: remote\n  project_id: p\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public_key")
}

func TestValidate(t *testing.T) {
	cfg := Default(t.TempDir())
	assert.NoError(t, cfg.Validate())

	cfg.Store.Backend = "mongo"
	assert.Error(t, cfg.Validate())

	cfg.Store.Backend = BackendPostgres
	cfg.Store.DSN = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default(filepath.Dir(path))
	cfg.Calendar = "Work"

	require.NoError(t, Save(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestReadFileIgnoresEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("calendar: Work\n"), 0600))
	t.Setenv(EnvPublicKey, "secret")

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Work", cfg.Calendar)
	assert.Empty(t, cfg.Store.PublicKey)
}
